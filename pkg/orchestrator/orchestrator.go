package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/openinquiry/inquiry/pkg/analysis"
	"github.com/openinquiry/inquiry/pkg/config"
	"github.com/openinquiry/inquiry/pkg/coordinator"
	"github.com/openinquiry/inquiry/pkg/decompose"
	"github.com/openinquiry/inquiry/pkg/domain"
	"github.com/openinquiry/inquiry/pkg/observability"
	"github.com/openinquiry/inquiry/pkg/queue"
	"github.com/openinquiry/inquiry/pkg/refinement"
	"github.com/openinquiry/inquiry/pkg/state"
)

// controlState is one node of the investigation control loop
type controlState string

const (
	stateAnalyze    controlState = "analyze_objective"
	stateAssign     controlState = "assign_agents"
	stateCoordinate controlState = "coordinate_execution"
	stateEvaluate   controlState = "evaluate_findings"
	stateRefine     controlState = "refine_approach"
	stateSynthesize controlState = "synthesize_results"
	stateEnd        controlState = "end"
)

// Orchestrator drives one investigation at a time through the control
// loop: decompose, assign, coordinate, evaluate, then route. Instances
// are safe to reuse sequentially; run-scoped state (queue, coverage,
// findings snapshot) is created fresh per Run and never shared.
type Orchestrator struct {
	cfg        *config.Config
	decomposer domain.Decomposer
	registry   domain.AgentRegistry
	bus        domain.MessageBus
	factory    *coordinator.Factory
	store      *state.SnapshotStore
	telemetry  *observability.Telemetry
	metrics    *observability.Metrics
	logger     *observability.StructuredLogger
	engine     *refinement.Engine
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithDecomposer injects the objective decomposer
func WithDecomposer(d domain.Decomposer) Option {
	return func(o *Orchestrator) { o.decomposer = d }
}

// WithRegistry injects the agent registry. Without one, every task is
// assigned to the general worker.
func WithRegistry(r domain.AgentRegistry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithBus injects the message bus used for dispatch. Without one,
// dispatch is skipped.
func WithBus(b domain.MessageBus) Option {
	return func(o *Orchestrator) { o.bus = b }
}

// WithFactory injects the sub-coordinator factory
func WithFactory(f *coordinator.Factory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

// WithSnapshotStore enables persistence of the investigation record
// after every transition.
func WithSnapshotStore(s *state.SnapshotStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithTelemetry enables tracing and metrics
func WithTelemetry(t *observability.Telemetry) Option {
	return func(o *Orchestrator) { o.telemetry = t }
}

// New creates an orchestrator. A nil config uses defaults; the rule
// based decomposer and a plain factory stand in for anything not
// injected.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: observability.NewStructuredLogger("orchestrator"),
		engine: refinement.NewEngine(cfg.Investigation.MaxRefinements),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.decomposer == nil {
		o.decomposer = decompose.NewRuleBased()
	}
	if o.factory == nil {
		o.factory = coordinator.NewFactory(
			coordinator.WithMaxConcurrency(cfg.Investigation.MaxConcurrency),
		)
	}
	if o.telemetry != nil {
		metrics, err := observability.NewMetrics(o.telemetry.Meter())
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		o.metrics = metrics
	}

	return o, nil
}

// run carries the per-investigation working set through the control
// loop. Owned by exactly one Run call.
type run struct {
	inv      state.Investigation
	queue    *queue.Queue
	coverage *analysis.Coverage
	keywords []string

	// snapshot holds the findings known before the current evaluation,
	// used for the diminishing-returns comparison
	snapshot     []domain.Finding
	coverageSeen int
}

// Run executes one full investigation for the objective and returns its
// terminal summary. The control loop is strictly sequential; fan-out
// happens only inside individual transitions.
func (o *Orchestrator) Run(ctx context.Context, objective string) (*domain.InvestigationResult, error) {
	investigationID := uuid.NewString()

	if timeout, err := time.ParseDuration(o.cfg.Investigation.Timeout); err == nil && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var span trace.Span
	if o.telemetry != nil {
		ctx, span = o.telemetry.StartInvestigation(ctx, investigationID, objective)
		defer span.End()
	}
	if o.metrics != nil {
		o.metrics.RecordInvestigationStarted(ctx)
	}
	startedAt := time.Now()

	r := &run{
		inv: state.New(investigationID, objective, o.cfg.Investigation.MaxRefinements),
		queue: queue.New(
			queue.WithRecencyDecay(o.cfg.Queue.RecencyDecayHours),
			queue.WithRetryPenalty(o.cfg.Queue.RetryPenalty),
			queue.WithMaxRetries(o.cfg.Queue.MaxRetries),
		),
	}

	o.logger.Info(ctx, "Starting investigation", map[string]interface{}{
		"investigation_id": investigationID,
		"objective":        objective,
	})

	current := stateAnalyze
	var runErr error

	for current != stateEnd {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		next, err := o.step(ctx, r, current)
		if err != nil {
			runErr = err
			break
		}
		current = next

		if o.store != nil {
			if err := o.store.Save(ctx, r.inv); err != nil {
				o.logger.Warn(ctx, "Snapshot save failed", map[string]interface{}{
					"investigation_id": investigationID,
					"error":            err.Error(),
				})
			}
		}
	}

	result := o.buildResult(r, runErr)
	if o.metrics != nil {
		o.metrics.RecordInvestigationComplete(ctx, time.Since(startedAt), result.FinalAction)
	}

	o.logger.Info(ctx, "Investigation finished", map[string]interface{}{
		"investigation_id": investigationID,
		"success":          result.Success,
		"findings":         result.FindingsCollected,
		"refinements":      result.RefinementsPerformed,
		"final_action":     result.FinalAction,
	})

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// step executes one transition and returns the next control state
func (o *Orchestrator) step(ctx context.Context, r *run, current controlState) (controlState, error) {
	var handler func(context.Context, *run) error
	next := stateEnd

	switch current {
	case stateAnalyze:
		handler = o.analyzeObjective
		next = stateAssign
	case stateAssign:
		handler = o.assignAgents
		next = stateCoordinate
	case stateCoordinate:
		handler = o.coordinateExecution
		next = stateEvaluate
	case stateEvaluate:
		handler = o.evaluateFindings
	case stateRefine:
		handler = o.refineApproach
		next = stateAssign
	case stateSynthesize:
		handler = o.synthesizeResults
		next = stateEnd
	default:
		return stateEnd, fmt.Errorf("unknown control state: %s", current)
	}

	var err error
	if o.telemetry != nil {
		err = o.telemetry.InstrumentTransition(ctx, string(current), func(ctx context.Context) error {
			return handler(ctx, r)
		})
	} else {
		err = handler(ctx, r)
	}
	if err != nil {
		return stateEnd, fmt.Errorf("%s failed: %w", current, err)
	}

	if current == stateEvaluate {
		switch r.inv.NextAction {
		case domain.ActionRefine:
			next = stateRefine
		case domain.ActionExplore:
			next = stateAssign
		case domain.ActionEnd:
			next = stateEnd
		default:
			next = stateSynthesize
		}
	}

	return next, nil
}

func (o *Orchestrator) buildResult(r *run, runErr error) *domain.InvestigationResult {
	result := &domain.InvestigationResult{
		Success:              runErr == nil,
		SubtasksCreated:      len(r.inv.Subtasks),
		FindingsCollected:    len(r.inv.Findings),
		RefinementsPerformed: r.inv.RefinementCount,
		FinalSignalStrength:  r.inv.SignalStrength,
		FinalAction:          string(r.inv.NextAction),
		Messages:             r.inv.Messages,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	return result
}
