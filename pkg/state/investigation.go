package state

import (
	"time"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// Investigation is the central record threaded through the control loop.
// Transitions produce updated copies rather than mutating in place, so a
// transition that fails part-way leaves the previous value intact.
type Investigation struct {
	ID              string                  `json:"id"`
	Objective       string                  `json:"objective"`
	Messages        []string                `json:"messages"`
	Subtasks        []domain.Subtask        `json:"subtasks"`
	Assignments     map[string]string       `json:"assignments"` // subtask id -> agent
	Findings        []domain.Finding        `json:"findings"`
	RefinementCount int                     `json:"refinement_count"`
	MaxRefinements  int                     `json:"max_refinements"`
	Coverage        map[string]float64      `json:"coverage"`
	SignalStrength  float64                 `json:"signal_strength"`
	Conflicts       []domain.Conflict       `json:"conflicts"`
	NextAction      domain.NextAction       `json:"next_action"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// New creates an investigation record for one objective
func New(id, objective string, maxRefinements int) Investigation {
	now := time.Now()
	return Investigation{
		ID:             id,
		Objective:      objective,
		Messages:       []string{},
		Subtasks:       []domain.Subtask{},
		Assignments:    map[string]string{},
		Findings:       []domain.Finding{},
		MaxRefinements: maxRefinements,
		Coverage:       map[string]float64{},
		NextAction:     domain.ActionExplore,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// clone returns a copy with freshly allocated slices and maps so callers
// can append without aliasing the receiver.
func (inv Investigation) clone() Investigation {
	out := inv
	out.Messages = append([]string(nil), inv.Messages...)
	out.Subtasks = append([]domain.Subtask(nil), inv.Subtasks...)
	out.Findings = append([]domain.Finding(nil), inv.Findings...)
	out.Conflicts = append([]domain.Conflict(nil), inv.Conflicts...)
	out.Assignments = make(map[string]string, len(inv.Assignments))
	for k, v := range inv.Assignments {
		out.Assignments[k] = v
	}
	out.Coverage = make(map[string]float64, len(inv.Coverage))
	for k, v := range inv.Coverage {
		out.Coverage[k] = v
	}
	out.UpdatedAt = time.Now()
	return out
}

// WithMessage appends to the ordered message trail
func (inv Investigation) WithMessage(msg string) Investigation {
	out := inv.clone()
	out.Messages = append(out.Messages, msg)
	return out
}

// WithSubtasks appends new subtask descriptors
func (inv Investigation) WithSubtasks(subtasks ...domain.Subtask) Investigation {
	out := inv.clone()
	out.Subtasks = append(out.Subtasks, subtasks...)
	return out
}

// WithSubtaskStatus updates the status of one subtask by id
func (inv Investigation) WithSubtaskStatus(id string, status domain.TaskStatus) Investigation {
	out := inv.clone()
	for i := range out.Subtasks {
		if out.Subtasks[i].ID == id {
			out.Subtasks[i].Status = status
			break
		}
	}
	return out
}

// WithAssignment records a subtask-to-agent assignment
func (inv Investigation) WithAssignment(subtaskID, agent string) Investigation {
	out := inv.clone()
	out.Assignments[subtaskID] = agent
	return out
}

// WithFindings appends collected findings
func (inv Investigation) WithFindings(findings ...domain.Finding) Investigation {
	out := inv.clone()
	out.Findings = append(out.Findings, findings...)
	return out
}

// WithConflict appends a detected conflict
func (inv Investigation) WithConflict(conflict domain.Conflict) Investigation {
	out := inv.clone()
	out.Conflicts = append(out.Conflicts, conflict)
	return out
}

// WithEvaluation records the outcome of evaluate_findings
func (inv Investigation) WithEvaluation(signal float64, coverage map[string]float64, action domain.NextAction) Investigation {
	out := inv.clone()
	out.SignalStrength = signal
	for k, v := range coverage {
		out.Coverage[k] = v
	}
	out.NextAction = action
	return out
}

// WithRefinement increments the refinement counter
func (inv Investigation) WithRefinement() Investigation {
	out := inv.clone()
	out.RefinementCount++
	return out
}

// WithNextAction sets only the routing decision
func (inv Investigation) WithNextAction(action domain.NextAction) Investigation {
	out := inv.clone()
	out.NextAction = action
	return out
}

// PendingSubtasks returns the subtasks still waiting for scheduling
func (inv Investigation) PendingSubtasks() []domain.Subtask {
	var pending []domain.Subtask
	for _, st := range inv.Subtasks {
		if st.Status == domain.TaskStatusPending {
			pending = append(pending, st)
		}
	}
	return pending
}
