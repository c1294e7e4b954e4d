package coordinator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/openinquiry/inquiry/pkg/domain"
	"github.com/openinquiry/inquiry/pkg/observability"
)

// defaultRosters maps a source type to its default agent cohort
var defaultRosters = map[string][]string{
	"news":        {"wire_reader", "headline_scanner", "press_monitor"},
	"social":      {"feed_watcher", "thread_scanner"},
	"document":    {"doc_parser", "archive_reader", "records_clerk"},
	"specialized": {"domain_expert", "methods_reviewer"},
}

// Factory creates sub-coordinators with capability-appropriate rosters
type Factory struct {
	opts   []Option
	logger *observability.StructuredLogger
}

// NewFactory creates a factory; the given options apply to every
// coordinator it creates.
func NewFactory(opts ...Option) *Factory {
	return &Factory{
		opts:   opts,
		logger: observability.NewStructuredLogger("coordinator_factory"),
	}
}

// Create builds a sub-coordinator for a source type using its default
// roster; unknown source types fall back to the news roster.
func (f *Factory) Create(sourceType, parentObjective string) *SubCoordinator {
	roster, ok := defaultRosters[sourceType]
	if !ok {
		sourceType = "news"
		roster = defaultRosters["news"]
	}
	return NewSubCoordinator(sourceType, parentObjective, roster, f.opts...)
}

// CreateForAspects builds one sub-coordinator per aspect of an
// objective, inferring each aspect's source type from its text.
func (f *Factory) CreateForAspects(objective string, aspects []string) []*SubCoordinator {
	out := make([]*SubCoordinator, 0, len(aspects))
	for _, aspect := range aspects {
		out = append(out, f.Create(InferSourceType(aspect), objective))
	}
	return out
}

// ExecuteAll runs several coordinators in parallel over their task
// batches and joins before returning. An empty batch entry is skipped.
func (f *Factory) ExecuteAll(ctx context.Context, coords []*SubCoordinator, batches [][]*domain.Task) ([]*Aggregate, error) {
	results := make([]*Aggregate, len(coords))

	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range coords {
		if i >= len(batches) || len(batches[i]) == 0 {
			continue
		}
		i, sc := i, sc
		g.Go(func() error {
			agg, err := sc.Execute(ctx, batches[i])
			if err != nil {
				return err
			}
			results[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	compact := results[:0]
	for _, agg := range results {
		if agg != nil {
			compact = append(compact, agg)
		}
	}
	return compact, nil
}

// InferSourceType guesses the source type an aspect of the objective
// calls for by keyword matching; news is the default.
func InferSourceType(aspect string) string {
	a := strings.ToLower(aspect)
	switch {
	case containsAny(a, "news", "media", "press"):
		return "news"
	case containsAny(a, "social", "twitter", "reddit", "forum"):
		return "social"
	case containsAny(a, "document", "pdf", "report", "paper"):
		return "document"
	case containsAny(a, "academic", "expert", "research", "technical"):
		return "specialized"
	default:
		return "news"
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
