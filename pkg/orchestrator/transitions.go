package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/openinquiry/inquiry/pkg/analysis"
	"github.com/openinquiry/inquiry/pkg/coordinator"
	"github.com/openinquiry/inquiry/pkg/decompose"
	"github.com/openinquiry/inquiry/pkg/domain"
	"github.com/openinquiry/inquiry/pkg/queue"
)

const decomposeAttempts = 3

// analyzeObjective decomposes the objective into subtasks. A failing
// decomposer is retried with exponential backoff, then replaced by the
// deterministic rule-based fallback so the investigation always
// proceeds.
func (o *Orchestrator) analyzeObjective(ctx context.Context, r *run) error {
	objective := strings.TrimSpace(r.inv.Objective)
	if objective == "" {
		r.inv = r.inv.WithMessage("No objective provided, nothing to decompose")
		return nil
	}

	var decomposed []domain.DecomposedSubtask
	operation := func() error {
		out, err := o.decomposer.Decompose(ctx, objective)
		if err != nil {
			return err
		}
		decomposed = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), decomposeAttempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		o.logger.Warn(ctx, "Decomposer failed, using rule-based fallback", map[string]interface{}{
			"investigation_id": r.inv.ID,
			"error":            err.Error(),
		})
		fallback, fbErr := decompose.NewRuleBased().Decompose(ctx, objective)
		if fbErr != nil {
			return fmt.Errorf("fallback decomposition failed: %w", fbErr)
		}
		decomposed = fallback
		r.inv = r.inv.WithMessage("Decomposer unavailable, fell back to heuristic decomposition")
	}

	subtasks := make([]domain.Subtask, 0, len(decomposed))
	for _, d := range decomposed {
		subtasks = append(subtasks, domain.Subtask{
			ID:               d.ID,
			Description:      d.Description,
			Priority:         d.Priority,
			SuggestedSources: d.SuggestedSources,
			Status:           domain.TaskStatusPending,
		})
	}

	r.inv = r.inv.WithSubtasks(subtasks...).
		WithMessage(fmt.Sprintf("Decomposed objective into %d subtasks", len(subtasks)))
	return nil
}

// assignAgents pushes pending subtasks into the queue and distributes
// them across registered agents by capability. Without a registry, or
// when distribution fails, everything goes to the general worker.
func (o *Orchestrator) assignAgents(ctx context.Context, r *run) error {
	if r.coverage == nil {
		r.keywords = extractKeywords(r.inv.Objective)
		r.coverage = analysis.NewCoverage(analysis.CoverageTargets{
			ExpectedSubtopics: r.keywords,
		})
		r.queue.SetContext(r.keywords, nil)
	}

	for _, st := range r.inv.PendingSubtasks() {
		if _, exists := r.queue.Get(st.ID); exists {
			continue
		}

		metadata := map[string]interface{}{
			domain.MetaKeywords: extractKeywords(st.Description),
		}
		if len(st.SuggestedSources) > 0 {
			metadata[domain.MetaSourceType] = st.SuggestedSources[0]
			metadata[domain.MetaRequiredCapability] = st.SuggestedSources[0]
		}
		if st.Priority >= 8 {
			metadata[domain.MetaUrgency] = "high"
		}

		r.queue.Add(queue.TaskRequest{
			ID:        st.ID,
			Objective: st.Description,
			Metadata:  metadata,
		})
		if o.metrics != nil {
			src, _ := metadata[domain.MetaSourceType].(string)
			o.metrics.RecordTaskScheduled(ctx, src)
		}
	}

	assigned := 0
	agents, err := o.activeAgents(ctx)
	if err != nil || len(agents) == 0 {
		if err != nil {
			o.logger.Warn(ctx, "Agent distribution failed, assigning to general worker", map[string]interface{}{
				"investigation_id": r.inv.ID,
				"error":            err.Error(),
			})
		}
		for {
			task := r.queue.Next()
			if task == nil {
				break
			}
			o.recordAssignment(ctx, r, task.ID, domain.GeneralWorker)
			assigned++
		}
	} else {
		for _, agent := range agents {
			task := r.queue.Next(agent.Capabilities...)
			if task == nil {
				continue
			}
			o.recordAssignment(ctx, r, task.ID, agent.Name)
			assigned++
		}
	}

	r.inv = r.inv.WithMessage(fmt.Sprintf("Assigned %d tasks to agents", assigned))
	return nil
}

func (o *Orchestrator) activeAgents(ctx context.Context) ([]domain.Agent, error) {
	if o.registry == nil {
		return nil, nil
	}
	return o.registry.GetActiveAgents(ctx)
}

func (o *Orchestrator) recordAssignment(ctx context.Context, r *run, taskID, agent string) {
	if err := r.queue.UpdateStatus(taskID, domain.TaskStatusAssigned, agent); err != nil {
		o.logger.Warn(ctx, "Assignment bookkeeping failed", map[string]interface{}{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}
	r.inv = r.inv.WithAssignment(taskID, agent).
		WithSubtaskStatus(taskID, domain.TaskStatusAssigned)
	if o.metrics != nil {
		o.metrics.RecordTaskDequeued(ctx)
	}
}

// coordinateExecution dispatches each assignment on the agent's bus
// channel, fans the assigned batch out to source-type sub-coordinators,
// and folds the aggregated findings back into the investigation. Every
// cycle yields at least one finding so evaluation always has input.
func (o *Orchestrator) coordinateExecution(ctx context.Context, r *run) error {
	pending := o.assignedTasks(r)

	o.dispatchAll(ctx, r, pending)

	findings := o.executeCohorts(ctx, r, pending)
	if len(findings) == 0 {
		findings = append(findings, domain.Finding{
			Source:     "internal",
			Content:    fmt.Sprintf("Execution cycle produced no agent results for: %s", r.inv.Objective),
			AgentID:    domain.GeneralWorker,
			Confidence: 0.3,
			Timestamp:  time.Now(),
			Metadata:   map[string]interface{}{"simulated": true},
		})
	}
	r.inv = r.inv.WithFindings(findings...)

	for _, task := range pending {
		if err := r.queue.UpdateStatus(task.ID, domain.TaskStatusCompleted, ""); err == nil {
			r.inv = r.inv.WithSubtaskStatus(task.ID, domain.TaskStatusCompleted)
			if o.metrics != nil {
				o.metrics.RecordTaskComplete(ctx, string(domain.TaskStatusCompleted))
			}
		}
	}

	r.inv = r.inv.WithMessage(fmt.Sprintf("Collected %d findings from %d dispatched tasks", len(findings), len(pending)))
	return nil
}

// assignedTasks returns the queue tasks backing currently assigned
// subtasks, in subtask order.
func (o *Orchestrator) assignedTasks(r *run) []*domain.Task {
	var out []*domain.Task
	for _, st := range r.inv.Subtasks {
		if st.Status != domain.TaskStatusAssigned {
			continue
		}
		if task, exists := r.queue.Get(st.ID); exists {
			out = append(out, task)
		}
	}
	return out
}

// dispatchAll publishes one execution message per assignment, in
// parallel, joined before returning. Dispatch failures are logged and
// counted, never fatal.
func (o *Orchestrator) dispatchAll(ctx context.Context, r *run, tasks []*domain.Task) {
	if o.bus == nil {
		return
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		agent := r.inv.Assignments[task.ID]
		if agent == "" {
			agent = domain.GeneralWorker
		}
		channel := "agents." + agent
		msg := domain.BusMessage{
			Type:      "execute",
			TaskID:    task.ID,
			Objective: task.Objective,
			AgentID:   agent,
			Timestamp: time.Now(),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			publish := func(ctx context.Context) error {
				return o.bus.Publish(ctx, channel, msg)
			}

			var err error
			if o.telemetry != nil {
				err = o.telemetry.InstrumentDispatch(ctx, channel, publish)
			} else {
				err = publish(ctx)
			}
			if o.metrics != nil {
				o.metrics.RecordDispatch(ctx, channel, err == nil)
			}
			if err != nil {
				o.logger.Warn(ctx, "Dispatch failed", map[string]interface{}{
					"channel": channel,
					"task_id": msg.TaskID,
					"error":   err.Error(),
				})
			}
		}()
	}
	wg.Wait()
}

// executeCohorts groups the assigned batch by source type, runs one
// sub-coordinator per group in parallel, and merges the aggregates with
// attribution preserved.
func (o *Orchestrator) executeCohorts(ctx context.Context, r *run, tasks []*domain.Task) []domain.Finding {
	if len(tasks) == 0 {
		return nil
	}

	grouped := make(map[string][]*domain.Task)
	var order []string
	for _, task := range tasks {
		sourceType := taskSourceType(task)
		if _, seen := grouped[sourceType]; !seen {
			order = append(order, sourceType)
		}
		grouped[sourceType] = append(grouped[sourceType], task)
	}

	coords := make([]*coordinator.SubCoordinator, 0, len(order))
	batches := make([][]*domain.Task, 0, len(order))
	for _, sourceType := range order {
		coords = append(coords, o.factory.Create(sourceType, r.inv.Objective))
		batches = append(batches, grouped[sourceType])
	}

	aggregates, err := o.factory.ExecuteAll(ctx, coords, batches)
	if err != nil {
		o.logger.Warn(ctx, "Cohort execution failed", map[string]interface{}{
			"investigation_id": r.inv.ID,
			"error":            err.Error(),
		})
		return nil
	}

	if o.metrics != nil {
		for _, agg := range aggregates {
			o.metrics.RecordCohortExecution(ctx, agg.SourceType,
				agg.CompletedAt.Sub(agg.StartedAt), len(agg.Findings))
		}
	}

	combined := coordinator.Combine(aggregates)
	return combined.Findings
}

func taskSourceType(task *domain.Task) string {
	if src, ok := task.Metadata[domain.MetaSourceType].(string); ok && src != "" {
		return coordinator.InferSourceType(src)
	}
	return coordinator.InferSourceType(task.Objective)
}

// evaluateFindings scores the accumulated findings, refreshes coverage,
// checks for diminishing returns when enough refinement history exists,
// and routes through the decision tree.
func (o *Orchestrator) evaluateFindings(ctx context.Context, r *run) error {
	signal := analysis.SignalStrength(r.inv.Findings, r.keywords)
	if o.metrics != nil {
		o.metrics.RecordSignalStrength(ctx, signal)
	}

	for _, f := range r.inv.Findings[r.coverageSeen:] {
		r.coverage.Update(f)
	}
	r.coverageSeen = len(r.inv.Findings)
	coverageMap := r.coverage.Overall()

	diminishing := false
	if r.inv.RefinementCount > 2 && len(r.inv.Findings) >= 2 {
		latest := r.inv.Findings[len(r.inv.Findings)-2:]
		novelty := analysis.DiminishingReturns(latest, r.snapshot)
		diminishing = novelty < o.cfg.Investigation.NoveltyThreshold
	}
	r.snapshot = append([]domain.Finding(nil), r.inv.Findings...)

	action, branch := o.decide(r.inv.RefinementCount, r.inv.MaxRefinements, signal, coverageMap, diminishing)
	if o.metrics != nil {
		o.metrics.RecordDecision(ctx, string(action), branch)
	}

	r.inv = r.inv.WithEvaluation(signal, coverageMap, action).
		WithMessage(fmt.Sprintf("Evaluation: signal=%.2f action=%s (branch %d)", signal, action, branch))

	o.logger.Debug(ctx, "Routing decision", map[string]interface{}{
		"investigation_id": r.inv.ID,
		"signal":           signal,
		"action":           string(action),
		"branch":           branch,
		"refinements":      r.inv.RefinementCount,
	})
	return nil
}

// decide is the routing decision tree. Branches are evaluated top to
// bottom, first match wins; the ordering is load-bearing and must not be
// rearranged. Branches 1 and 2 overlap deliberately: 1 is the absolute
// safety valve, 2 the normal ceiling.
func (o *Orchestrator) decide(count, limit int, signal float64, coverage map[string]float64, diminishing bool) (domain.NextAction, int) {
	switch {
	case count > limit:
		return domain.ActionSynthesize, 1
	case count >= limit:
		return domain.ActionSynthesize, 2
	case diminishing || count > 5:
		return domain.ActionSynthesize, 3
	case signal > o.cfg.Investigation.SignalThreshold && !o.coverageMet(coverage):
		if count < limit-1 {
			return domain.ActionRefine, 4
		}
		return domain.ActionSynthesize, 4
	case o.coverageMet(coverage):
		return domain.ActionSynthesize, 5
	case count < 2:
		return domain.ActionRefine, 6
	default:
		return domain.ActionSynthesize, 7
	}
}

func (o *Orchestrator) coverageMet(coverage map[string]float64) bool {
	thresholds := o.cfg.Investigation.CoverageThresholds
	if len(thresholds) == 0 {
		thresholds = map[string]float64{
			analysis.DimSourceDiversity:    0.7,
			analysis.DimGeographicCoverage: 0.6,
		}
	}
	for dim, min := range thresholds {
		if coverage[dim] < min {
			return false
		}
	}
	return true
}

// refineApproach advances the refinement counter and, when reflection is
// enabled, feeds targeted follow-up subtasks back into the loop.
func (o *Orchestrator) refineApproach(ctx context.Context, r *run) error {
	r.inv = r.inv.WithRefinement()
	count := r.inv.RefinementCount
	if o.metrics != nil {
		o.metrics.RecordRefinement(ctx)
	}

	r.inv = r.inv.WithMessage(fmt.Sprintf("Refinement %d: narrowing focus based on %d findings", count, len(r.inv.Findings)))

	if o.cfg.Investigation.EnableReflection {
		reflection := o.engine.ReflectOnFindings(r.inv.Findings, r.inv.Objective)
		targeted := o.engine.CreateTargetedSubtasks(reflection, r.inv.Objective, count)
		if len(targeted) > 0 {
			r.inv = r.inv.WithSubtasks(targeted...).
				WithMessage(fmt.Sprintf("Reflection added %d targeted subtasks", len(targeted)))
		}
	}

	return nil
}

// synthesizeResults is the terminal transition
func (o *Orchestrator) synthesizeResults(ctx context.Context, r *run) error {
	summary := fmt.Sprintf("Synthesis complete: %d findings, %d conflicts, %d refinements, signal %.2f",
		len(r.inv.Findings), len(r.inv.Conflicts), r.inv.RefinementCount, r.inv.SignalStrength)
	r.inv = r.inv.WithNextAction(domain.ActionEnd).WithMessage(summary)
	return nil
}

// extractKeywords pulls lowercase tokens longer than three characters
// out of free text, deduplicated in order of first appearance.
func extractKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}
