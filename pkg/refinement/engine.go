package refinement

import (
	"fmt"
	"strings"
	"sync"

	"github.com/openinquiry/inquiry/pkg/domain"
)

const (
	maxFollowUps         = 3
	maxAngleSubtasks     = 2
	minSignalImprovement = 0.05
)

// Reflection captures what a pass over the current findings revealed
type Reflection struct {
	Gaps             []string `json:"gaps"`
	Patterns         []string `json:"patterns"`
	UnexploredAngles []string `json:"unexplored_angles"`
	Reasoning        string   `json:"reasoning"`
}

// Engine reflects on accumulated findings, generates targeted follow-up
// subtasks, and owns a stopping check independent of the orchestrator's
// hard refinement cap.
type Engine struct {
	mu            sync.Mutex
	maxIterations int
	lastSignal    float64
	lastRecorded  bool
}

// NewEngine creates a refinement engine bounded to maxIterations
func NewEngine(maxIterations int) *Engine {
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &Engine{maxIterations: maxIterations}
}

// ReflectOnFindings inspects findings for gaps, recurring patterns, and
// unexplored angles suggested by the objective text.
func (e *Engine) ReflectOnFindings(findings []domain.Finding, objective string) Reflection {
	r := Reflection{}

	sources := make(map[string]bool)
	confidenceSum := 0.0
	for _, f := range findings {
		sources[strings.ToLower(f.Source)] = true
		confidenceSum += f.Confidence
	}

	if len(sources) < 3 {
		r.Gaps = append(r.Gaps, fmt.Sprintf("only %d distinct sources consulted", len(sources)))
	}
	if len(findings) > 0 && confidenceSum/float64(len(findings)) < 0.6 {
		r.Gaps = append(r.Gaps, "mean finding confidence below 0.6")
	}
	if len(findings) < 5 {
		r.Gaps = append(r.Gaps, fmt.Sprintf("only %d findings collected", len(findings)))
	}

	if len(sources) > 1 {
		r.Patterns = append(r.Patterns, fmt.Sprintf("corroboration across %d sources", len(sources)))
	}
	for token, count := range recurringTokens(findings) {
		if count > 1 {
			r.Patterns = append(r.Patterns, fmt.Sprintf("recurring reference to %q", token))
		}
	}

	obj := strings.ToLower(objective)
	if strings.Contains(obj, "when") && !mentionsAny(findings, "timeline", "chronology") {
		r.UnexploredAngles = append(r.UnexploredAngles, "temporal analysis of the event sequence")
	}
	if strings.Contains(obj, "where") && !mentionsAny(findings, "location", "region") {
		r.UnexploredAngles = append(r.UnexploredAngles, "geographic distribution of reports")
	}
	if strings.Contains(obj, "who") && !mentionsAny(findings, "actor", "responsible") {
		r.UnexploredAngles = append(r.UnexploredAngles, "identification of the actors involved")
	}
	if strings.Contains(obj, "why") && !mentionsAny(findings, "motive", "cause") {
		r.UnexploredAngles = append(r.UnexploredAngles, "causes and motives behind the events")
	}

	r.Reasoning = fmt.Sprintf("%d findings from %d sources; %d gaps, %d unexplored angles",
		len(findings), len(sources), len(r.Gaps), len(r.UnexploredAngles))
	return r
}

// ShouldContinueRefinement decides whether another refinement cycle is
// likely to be productive. It records the signal per call so the next
// call can measure improvement.
func (e *Engine) ShouldContinueRefinement(iteration int, signal float64, coverage map[string]float64, findings []domain.Finding) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if iteration >= e.maxIterations {
		return false
	}

	if e.lastRecorded && signal-e.lastSignal < minSignalImprovement {
		e.lastSignal = signal
		return false
	}
	e.lastSignal = signal
	e.lastRecorded = true

	strongDims := 0
	for _, v := range coverage {
		if v > 0.7 {
			strongDims++
		}
	}
	if strongDims >= 2 && iteration > 3 {
		return false
	}

	if iteration > 2 && len(findings) > 10 && windowOverlap(findings) > 0.5 {
		return false
	}

	return true
}

// GenerateFollowUps turns reflection gaps into at most three follow-up
// questions.
func (e *Engine) GenerateFollowUps(r Reflection, objective string) []string {
	var out []string
	for _, gap := range r.Gaps {
		if len(out) >= maxFollowUps {
			break
		}
		out = append(out, fmt.Sprintf("address gap (%s) for: %s", gap, objective))
	}
	return out
}

// CreateTargetedSubtasks builds prioritized subtasks from the reflection,
// at most three from gaps and two from unexplored angles, ids tagged
// with the iteration for traceability.
func (e *Engine) CreateTargetedSubtasks(r Reflection, objective string, iteration int) []domain.Subtask {
	var out []domain.Subtask

	n := 0
	for _, followUp := range e.GenerateFollowUps(r, objective) {
		out = append(out, domain.Subtask{
			ID:          fmt.Sprintf("refine-%d-%d", iteration, n),
			Description: followUp,
			Priority:    7,
			Status:      domain.TaskStatusPending,
		})
		n++
	}

	angles := r.UnexploredAngles
	if len(angles) > maxAngleSubtasks {
		angles = angles[:maxAngleSubtasks]
	}
	for _, angle := range angles {
		out = append(out, domain.Subtask{
			ID:          fmt.Sprintf("refine-%d-%d", iteration, n),
			Description: fmt.Sprintf("explore %s for: %s", angle, objective),
			Priority:    6,
			Status:      domain.TaskStatusPending,
		})
		n++
	}

	return out
}

// windowOverlap compares the earliest and most recent five-finding
// windows by content prefix; high overlap means the investigation is
// circling.
func windowOverlap(findings []domain.Finding) float64 {
	const window = 5
	if len(findings) < 2*window {
		return 0
	}

	prefixes := func(fs []domain.Finding) map[string]bool {
		out := make(map[string]bool, len(fs))
		for _, f := range fs {
			content := []rune(f.Content)
			if len(content) > 50 {
				content = content[:50]
			}
			out[strings.ToLower(string(content))] = true
		}
		return out
	}

	early := prefixes(findings[:window])
	recent := prefixes(findings[len(findings)-window:])

	matched := 0
	for p := range recent {
		if early[p] {
			matched++
		}
	}
	return float64(matched) / float64(len(recent))
}

func recurringTokens(findings []domain.Finding) map[string]int {
	counts := make(map[string]int)
	seenPerFinding := make(map[string]bool)
	for _, f := range findings {
		for k := range seenPerFinding {
			delete(seenPerFinding, k)
		}
		for _, w := range strings.Fields(strings.ToLower(f.Content)) {
			w = strings.Trim(w, ".,;:!?\"'()")
			if len([]rune(w)) > 6 && !seenPerFinding[w] {
				seenPerFinding[w] = true
				counts[w]++
			}
		}
	}
	for w, c := range counts {
		if c < 2 {
			delete(counts, w)
		}
	}
	return counts
}

func mentionsAny(findings []domain.Finding, needles ...string) bool {
	for _, f := range findings {
		content := strings.ToLower(f.Content)
		for _, n := range needles {
			if strings.Contains(content, n) {
				return true
			}
		}
	}
	return false
}
