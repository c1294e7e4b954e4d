package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Counters
	investigationsTotal metric.Int64Counter
	tasksScheduledTotal metric.Int64Counter
	tasksCompletedTotal metric.Int64Counter
	tasksFailedTotal    metric.Int64Counter
	refinementsTotal    metric.Int64Counter
	dispatchesTotal     metric.Int64Counter
	decisionsTotal      metric.Int64Counter

	// Histograms
	investigationDuration metric.Float64Histogram
	cohortDuration        metric.Float64Histogram
	signalStrength        metric.Float64Histogram

	// Gauges (async instruments backed by application counters)
	activeInvestigations metric.Int64ObservableGauge
	queuedTasks          metric.Int64ObservableGauge

	activeInvestigationCount int64
	queuedTaskCount          int64
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{
		meter: meter,
	}

	var err error

	m.investigationsTotal, err = meter.Int64Counter(
		"investigations_total",
		metric.WithDescription("Total number of investigations started"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.tasksScheduledTotal, err = meter.Int64Counter(
		"tasks_scheduled_total",
		metric.WithDescription("Total number of tasks added to the queue"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.tasksCompletedTotal, err = meter.Int64Counter(
		"tasks_completed_total",
		metric.WithDescription("Total number of tasks completed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.tasksFailedTotal, err = meter.Int64Counter(
		"tasks_failed_total",
		metric.WithDescription("Total number of tasks failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.refinementsTotal, err = meter.Int64Counter(
		"refinements_total",
		metric.WithDescription("Total number of refinement cycles performed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.dispatchesTotal, err = meter.Int64Counter(
		"dispatches_total",
		metric.WithDescription("Total number of execution messages dispatched"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.decisionsTotal, err = meter.Int64Counter(
		"routing_decisions_total",
		metric.WithDescription("Routing decisions by action and branch"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.investigationDuration, err = meter.Float64Histogram(
		"investigation_duration_seconds",
		metric.WithDescription("Duration of investigations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.cohortDuration, err = meter.Float64Histogram(
		"cohort_execution_duration_seconds",
		metric.WithDescription("Duration of sub-coordinator executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.signalStrength, err = meter.Float64Histogram(
		"signal_strength",
		metric.WithDescription("Signal strength observed at evaluation time"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.activeInvestigations, err = meter.Int64ObservableGauge(
		"active_investigations",
		metric.WithDescription("Number of active investigations"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.activeInvestigationCount)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	m.queuedTasks, err = meter.Int64ObservableGauge(
		"queued_tasks",
		metric.WithDescription("Number of pending tasks in the queue"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.queuedTaskCount)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordInvestigationStarted records a new investigation
func (m *Metrics) RecordInvestigationStarted(ctx context.Context) {
	m.investigationsTotal.Add(ctx, 1)
	m.activeInvestigationCount++
}

// RecordInvestigationComplete records completion of an investigation
func (m *Metrics) RecordInvestigationComplete(ctx context.Context, duration time.Duration, finalAction string) {
	m.investigationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("final_action", finalAction),
		),
	)
	m.activeInvestigationCount--
}

// RecordTaskScheduled records a task added to the queue
func (m *Metrics) RecordTaskScheduled(ctx context.Context, sourceType string) {
	m.tasksScheduledTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source_type", sourceType),
		),
	)
	m.queuedTaskCount++
}

// RecordTaskDequeued records a task leaving the pending set
func (m *Metrics) RecordTaskDequeued(ctx context.Context) {
	m.queuedTaskCount--
}

// RecordTaskComplete records a terminal task status
func (m *Metrics) RecordTaskComplete(ctx context.Context, status string) {
	if status == "completed" {
		m.tasksCompletedTotal.Add(ctx, 1)
		return
	}
	m.tasksFailedTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("reason", status),
		),
	)
}

// RecordRefinement records one refinement cycle
func (m *Metrics) RecordRefinement(ctx context.Context) {
	m.refinementsTotal.Add(ctx, 1)
}

// RecordDispatch records an execution message dispatch attempt
func (m *Metrics) RecordDispatch(ctx context.Context, channel string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.dispatchesTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("status", status),
		),
	)
}

// RecordDecision records a routing decision and the branch that produced it
func (m *Metrics) RecordDecision(ctx context.Context, action string, branch int) {
	m.decisionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.Int("branch", branch),
		),
	)
}

// RecordSignalStrength records the signal strength seen at evaluation time
func (m *Metrics) RecordSignalStrength(ctx context.Context, value float64) {
	m.signalStrength.Record(ctx, value)
}

// RecordCohortExecution records a sub-coordinator execution
func (m *Metrics) RecordCohortExecution(ctx context.Context, sourceType string, duration time.Duration, findings int) {
	m.cohortDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("source_type", sourceType),
			attribute.Int("findings", findings),
		),
	)
}
