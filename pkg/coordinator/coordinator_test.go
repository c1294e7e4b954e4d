package coordinator_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openinquiry/inquiry/internal/testutil"
	"github.com/openinquiry/inquiry/pkg/coordinator"
	"github.com/openinquiry/inquiry/pkg/domain"
	"github.com/openinquiry/inquiry/pkg/observability"
)

func TestMain(m *testing.M) {
	observability.SetLogOutput(io.Discard)
	goleak.VerifyTestMain(m)
}

func task(id, objective string) *domain.Task {
	return &domain.Task{
		ID:        id,
		Objective: objective,
		Status:    domain.TaskStatusAssigned,
		CreatedAt: time.Now(),
	}
}

func TestSubCoordinator_ExecuteSimulated(t *testing.T) {
	ctx := testutil.NewTestContext(t)

	sc := coordinator.NewSubCoordinator("news", "track the merger", []string{"wire_reader", "press_monitor"})

	agg, err := sc.Execute(ctx, []*domain.Task{
		task("t1", "scan wires"),
		task("t2", "check headlines"),
		task("t3", "press releases"),
	})
	require.NoError(t, err)

	// One simulated finding per assignment
	assert.Len(t, agg.Findings, 3)
	assert.Equal(t, "news", agg.SourceType)
	assert.Equal(t, "track the merger", agg.ParentObjective)
	assert.ElementsMatch(t, []string{"wire_reader", "press_monitor"}, agg.Agents)
	assert.False(t, agg.CompletedAt.Before(agg.StartedAt))

	for _, f := range agg.Findings {
		assert.Equal(t, sc.ID(), f.Metadata["coordinator_id"])
		assert.Equal(t, "news", f.Metadata["source_type"])
	}
}

func TestSubCoordinator_RoundRobinDistribution(t *testing.T) {
	ctx := testutil.NewTestContext(t)

	invoker := testutil.NewMockInvoker()
	sc := coordinator.NewSubCoordinator("document", "audit filings",
		[]string{"doc_parser", "archive_reader"},
		coordinator.WithInvoker(invoker))

	tasks := []*domain.Task{
		task("t1", "q1"), task("t2", "q2"), task("t3", "q3"), task("t4", "q4"),
	}
	agg, err := sc.Execute(ctx, tasks)
	require.NoError(t, err)

	assert.Equal(t, 4, invoker.GetCallCount())

	perAgent := make(map[string]int)
	for _, f := range agg.Findings {
		perAgent[f.AgentID]++
	}
	assert.Equal(t, 2, perAgent["doc_parser"])
	assert.Equal(t, 2, perAgent["archive_reader"])
}

func TestSubCoordinator_AgentFailureDegrades(t *testing.T) {
	ctx := testutil.NewTestContext(t)

	invoker := testutil.NewMockInvoker()
	invoker.InvokeFunc = func(ctx context.Context, agent string, tk *domain.Task) ([]domain.Finding, error) {
		if agent == "thread_scanner" {
			return nil, fmt.Errorf("agent offline")
		}
		return []domain.Finding{{
			Source: "social", Content: "ok", AgentID: agent,
			Confidence: 0.7, Timestamp: time.Now(),
		}}, nil
	}

	sc := coordinator.NewSubCoordinator("social", "monitor chatter",
		[]string{"feed_watcher", "thread_scanner"},
		coordinator.WithInvoker(invoker))

	agg, err := sc.Execute(ctx, []*domain.Task{
		task("t1", "q1"), task("t2", "q2"),
	})
	require.NoError(t, err)

	// The failing agent's result is dropped, not fatal
	assert.Len(t, agg.Findings, 1)
	assert.Equal(t, "feed_watcher", agg.Findings[0].AgentID)
}

func TestSubCoordinator_NoAgents(t *testing.T) {
	ctx := testutil.NewTestContext(t)

	sc := coordinator.NewSubCoordinator("news", "anything", nil)
	_, err := sc.Execute(ctx, []*domain.Task{task("t1", "q1")})
	assert.Error(t, err)
}

func TestFactory_CreateKnownAndUnknown(t *testing.T) {
	f := coordinator.NewFactory()

	social := f.Create("social", "objective")
	assert.Equal(t, "social", social.SourceType())
	assert.Len(t, social.Agents(), 2)

	unknown := f.Create("carrier-pigeon", "objective")
	assert.Equal(t, "news", unknown.SourceType())
}

func TestFactory_CreateForAspects(t *testing.T) {
	f := coordinator.NewFactory()

	coords := f.CreateForAspects("the outage", []string{
		"press coverage of the outage",
		"reddit threads about the outage",
		"technical root cause research",
	})
	require.Len(t, coords, 3)
	assert.Equal(t, "news", coords[0].SourceType())
	assert.Equal(t, "social", coords[1].SourceType())
	assert.Equal(t, "specialized", coords[2].SourceType())
}

func TestFactory_OptionsReachCoordinators(t *testing.T) {
	ctx := testutil.NewTestContext(t)

	var mu sync.Mutex
	inFlight, peak := 0, 0

	invoker := testutil.NewMockInvoker()
	invoker.InvokeFunc = func(ctx context.Context, agent string, tk *domain.Task) ([]domain.Finding, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return []domain.Finding{{Source: "news", Content: "ok", AgentID: agent, Timestamp: time.Now()}}, nil
	}

	f := coordinator.NewFactory(
		coordinator.WithInvoker(invoker),
		coordinator.WithMaxConcurrency(1),
	)

	sc := f.Create("news", "track the merger")
	agg, err := sc.Execute(ctx, []*domain.Task{
		task("t1", "q1"), task("t2", "q2"), task("t3", "q3"),
	})
	require.NoError(t, err)
	assert.Len(t, agg.Findings, 3)
	assert.Equal(t, 1, peak, "invocations must respect the concurrency bound")
}

func TestFactory_ExecuteAll(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	f := coordinator.NewFactory()

	coords := []*coordinator.SubCoordinator{
		f.Create("news", "objective"),
		f.Create("social", "objective"),
		f.Create("document", "objective"),
	}
	batches := [][]*domain.Task{
		{task("n1", "q"), task("n2", "q")},
		{task("s1", "q")},
		nil, // empty batch is skipped
	}

	aggregates, err := f.ExecuteAll(ctx, coords, batches)
	require.NoError(t, err)
	require.Len(t, aggregates, 2)
}

func TestInferSourceType(t *testing.T) {
	cases := map[string]string{
		"press coverage":          "news",
		"twitter reaction":        "social",
		"pdf filings and reports": "document",
		"expert analysis":         "specialized",
		"completely unmatched":    "news",
	}
	for aspect, want := range cases {
		assert.Equal(t, want, coordinator.InferSourceType(aspect), aspect)
	}
}
