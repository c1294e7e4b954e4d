package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openinquiry/inquiry/pkg/domain"
	"github.com/openinquiry/inquiry/pkg/observability"
)

// Aggregate is the immutable record a sub-coordinator produces from one
// execute call. Ownership passes to the caller.
type Aggregate struct {
	CoordinatorID   string           `json:"coordinator_id"`
	SourceType      string           `json:"source_type"`
	ParentObjective string           `json:"parent_objective"`
	Agents          []string         `json:"agents"`
	Findings        []domain.Finding `json:"findings"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     time.Time        `json:"completed_at"`
	Summary         string           `json:"summary"`
}

// SubCoordinator distributes a task batch across a small agent cohort
// grouped by source-type capability and aggregates their results with
// attribution preserved.
type SubCoordinator struct {
	id              string
	sourceType      string
	parentObjective string
	agents          []string

	invoker        domain.AgentInvoker
	maxConcurrency int
	telemetry      *observability.Telemetry
	logger         *observability.StructuredLogger
}

// Option configures a SubCoordinator
type Option func(*SubCoordinator)

// WithInvoker supplies the collaborator that actually runs tasks on
// agents; without one, collection simulates a finding per assignment.
func WithInvoker(invoker domain.AgentInvoker) Option {
	return func(sc *SubCoordinator) { sc.invoker = invoker }
}

// WithTelemetry attaches tracing to execute calls
func WithTelemetry(t *observability.Telemetry) Option {
	return func(sc *SubCoordinator) { sc.telemetry = t }
}

// WithMaxConcurrency bounds parallel agent invocations
func WithMaxConcurrency(n int) Option {
	return func(sc *SubCoordinator) {
		if n > 0 {
			sc.maxConcurrency = n
		}
	}
}

// NewSubCoordinator creates a coordinator for one source-type cohort
func NewSubCoordinator(sourceType, parentObjective string, agents []string, opts ...Option) *SubCoordinator {
	sc := &SubCoordinator{
		id:              fmt.Sprintf("coord-%s-%s", sourceType, uuid.NewString()[:8]),
		sourceType:      sourceType,
		parentObjective: parentObjective,
		agents:          append([]string(nil), agents...),
		maxConcurrency:  4,
		logger:          observability.NewStructuredLogger("sub_coordinator"),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// ID returns the coordinator id
func (sc *SubCoordinator) ID() string { return sc.id }

// SourceType returns the cohort's source-type tag
func (sc *SubCoordinator) SourceType() string { return sc.sourceType }

// Agents returns the agent roster
func (sc *SubCoordinator) Agents() []string {
	return append([]string(nil), sc.agents...)
}

// assignment pairs one task with the agent that will run it
type assignment struct {
	task  *domain.Task
	agent string
}

// Execute runs the three-stage pipeline: distribute the batch round-robin
// across the roster, collect one result per assignment in parallel, and
// aggregate with attribution.
func (sc *SubCoordinator) Execute(ctx context.Context, tasks []*domain.Task) (*Aggregate, error) {
	if len(sc.agents) == 0 {
		return nil, fmt.Errorf("sub-coordinator %s has no agents", sc.id)
	}

	startedAt := time.Now()
	assignments := sc.distribute(tasks)

	var findings []domain.Finding
	run := func(ctx context.Context) (int, error) {
		var err error
		findings, err = sc.collect(ctx, assignments)
		if err != nil {
			return 0, err
		}
		return len(findings), nil
	}

	var err error
	if sc.telemetry != nil {
		err = sc.telemetry.InstrumentCohort(ctx, sc.id, sc.sourceType, run)
	} else {
		_, err = run(ctx)
	}
	if err != nil {
		return nil, err
	}

	agg := sc.aggregate(findings, startedAt)

	sc.logger.Info(ctx, "Cohort execution complete",
		map[string]interface{}{
			"coordinator_id": sc.id,
			"source_type":    sc.sourceType,
			"tasks":          len(tasks),
			"findings":       len(agg.Findings),
		},
	)

	return agg, nil
}

// distribute assigns tasks round-robin across the roster
func (sc *SubCoordinator) distribute(tasks []*domain.Task) []assignment {
	out := make([]assignment, 0, len(tasks))
	for i, task := range tasks {
		out = append(out, assignment{
			task:  task,
			agent: sc.agents[i%len(sc.agents)],
		})
	}
	return out
}

// collect gathers one result per assignment, fanning out across the
// roster and joining before returning.
func (sc *SubCoordinator) collect(ctx context.Context, assignments []assignment) ([]domain.Finding, error) {
	var mu sync.Mutex
	var findings []domain.Finding

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sc.maxConcurrency)

	for _, a := range assignments {
		a := a
		g.Go(func() error {
			result, err := sc.collectOne(ctx, a)
			if err != nil {
				// One failed agent degrades the batch, it does not abort it
				sc.logger.Warn(ctx, "Agent invocation failed",
					map[string]interface{}{
						"agent":   a.agent,
						"task_id": a.task.ID,
						"error":   err.Error(),
					},
				)
				return nil
			}
			mu.Lock()
			findings = append(findings, result...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return findings, nil
}

func (sc *SubCoordinator) collectOne(ctx context.Context, a assignment) ([]domain.Finding, error) {
	if sc.invoker != nil {
		return sc.invoker.Invoke(ctx, a.agent, a.task)
	}

	// No invoker configured: synthesize a finding so the pipeline keeps
	// its one-result-per-assignment shape.
	return []domain.Finding{{
		Source:     sc.sourceType,
		Content:    fmt.Sprintf("Simulated %s finding for: %s", sc.sourceType, a.task.Objective),
		AgentID:    a.agent,
		Confidence: 0.6,
		Timestamp:  time.Now(),
		Metadata: map[string]interface{}{
			"coordinator_id": sc.id,
			"source_type":    sc.sourceType,
			"simulated":      true,
		},
	}}, nil
}

// aggregate builds the immutable record, stamping every finding with the
// coordinator that produced it.
func (sc *SubCoordinator) aggregate(findings []domain.Finding, startedAt time.Time) *Aggregate {
	stamped := make([]domain.Finding, len(findings))
	for i, f := range findings {
		if f.Metadata == nil {
			f.Metadata = make(map[string]interface{})
		}
		f.Metadata["coordinator_id"] = sc.id
		f.Metadata["source_type"] = sc.sourceType
		stamped[i] = f
	}

	return &Aggregate{
		CoordinatorID:   sc.id,
		SourceType:      sc.sourceType,
		ParentObjective: sc.parentObjective,
		Agents:          sc.Agents(),
		Findings:        stamped,
		StartedAt:       startedAt,
		CompletedAt:     time.Now(),
		Summary: fmt.Sprintf("%s cohort (%d agents) produced %d findings for %q",
			sc.sourceType, len(sc.agents), len(stamped), sc.parentObjective),
	}
}
