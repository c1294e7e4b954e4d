package decompose

import (
	"context"
	"fmt"
	"strings"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// interrogatives drive the deterministic split; order fixes the priority
// stagger so decomposition is reproducible.
var interrogatives = []string{"who", "what", "where", "when", "why", "how"}

// RuleBased is a deterministic decomposer: one subtask per interrogative
// keyword present in the objective, priorities staggered in keyword
// order, or a single catch-all subtask when none match. It never fails,
// which also makes it the fallback of choice when a model-backed
// decomposer errors out.
type RuleBased struct{}

// NewRuleBased creates the deterministic decomposer
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Decompose implements domain.Decomposer
func (r *RuleBased) Decompose(ctx context.Context, objective string) ([]domain.DecomposedSubtask, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil, nil
	}

	lowered := strings.ToLower(objective)
	var out []domain.DecomposedSubtask

	priority := 10
	for i, kw := range interrogatives {
		if !containsWord(lowered, kw) {
			continue
		}
		out = append(out, domain.DecomposedSubtask{
			ID:               fmt.Sprintf("sub-%d", i),
			Description:      fmt.Sprintf("Establish %s: %s", aspectOf(kw), objective),
			Priority:         priority,
			SuggestedSources: sourcesFor(kw),
		})
		if priority > 1 {
			priority--
		}
	}

	if len(out) == 0 {
		out = append(out, domain.DecomposedSubtask{
			ID:               "sub-0",
			Description:      fmt.Sprintf("Investigate: %s", objective),
			Priority:         5,
			SuggestedSources: []string{"news"},
		})
	}

	return out, nil
}

func aspectOf(interrogative string) string {
	switch interrogative {
	case "who":
		return "the actors involved"
	case "what":
		return "what happened"
	case "where":
		return "the locations involved"
	case "when":
		return "the timeline of events"
	case "why":
		return "causes and motives"
	case "how":
		return "the mechanism of events"
	default:
		return "the facts"
	}
}

func sourcesFor(interrogative string) []string {
	switch interrogative {
	case "who":
		return []string{"news", "social"}
	case "where", "when":
		return []string{"news", "document"}
	case "why", "how":
		return []string{"specialized", "document"}
	default:
		return []string{"news"}
	}
}

// containsWord matches kw as a whole word so "somewhat" does not trigger
// a "what" subtask.
func containsWord(s, kw string) bool {
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' || r == ';' || r == ':'
	}) {
		if w == kw {
			return true
		}
	}
	return false
}
