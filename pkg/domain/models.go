package domain

import (
	"time"
)

// TaskStatus represents the current state of a scheduled task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// NextAction is the routing decision produced by evaluate_findings
type NextAction string

const (
	ActionExplore    NextAction = "explore"
	ActionRefine     NextAction = "refine"
	ActionSynthesize NextAction = "synthesize"
	ActionEnd        NextAction = "end"
)

// Well-known task metadata keys. The queue reads these when computing
// priority and matching capabilities.
const (
	MetaKeywords           = "keywords"
	MetaSourceType         = "source_type"
	MetaUrgency            = "urgency"
	MetaRetryCount         = "retry_count"
	MetaRequiredCapability = "required_capability"
	MetaTimestamp          = "timestamp"
)

// GeneralWorker is the fallback assignee used when no agent registry is
// configured or distribution fails.
const GeneralWorker = "general_worker"

// Task is a unit of schedulable work. Created and mutated exclusively by
// the task queue; the orchestrator holds references only.
type Task struct {
	ID            string                 `json:"id"`
	Objective     string                 `json:"objective"`
	Priority      float64                `json:"priority"`
	Status        TaskStatus             `json:"status"`
	AssignedAgent string                 `json:"assigned_agent,omitempty"`
	RetryCount    int                    `json:"retry_count"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Subtask is a decomposed unit of the original objective, distinct from
// its scheduler-queue representation.
type Subtask struct {
	ID               string     `json:"id"`
	Description      string     `json:"description"`
	Priority         int        `json:"priority"` // 1-10, higher is more urgent
	SuggestedSources []string   `json:"suggested_sources,omitempty"`
	Status           TaskStatus `json:"status"`
}

// Finding is a unit of evidence produced by a worker agent
type Finding struct {
	Source     string                 `json:"source"`
	Content    string                 `json:"content"`
	AgentID    string                 `json:"agent_id"`
	Confidence float64                `json:"confidence"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ConflictStatus tracks the lifecycle of a detected conflict
type ConflictStatus string

const (
	ConflictUnresolved         ConflictStatus = "unresolved"
	ConflictUnderInvestigation ConflictStatus = "under_investigation"
	ConflictResolved           ConflictStatus = "resolved"
)

// ConflictVersion is one competing account of a contested topic
type ConflictVersion struct {
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// Conflict records competing versions of the same topic
type Conflict struct {
	Topic    string            `json:"topic"`
	Versions []ConflictVersion `json:"versions"`
	Status   ConflictStatus    `json:"status"`
}

// Agent describes a registered worker and its capabilities
type Agent struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// HasCapability reports whether the agent declares the given capability.
func (a Agent) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// DecomposedSubtask is the shape produced by a Decomposer
type DecomposedSubtask struct {
	ID               string   `json:"id"`
	Description      string   `json:"description"`
	Priority         int      `json:"priority"` // 1-10
	SuggestedSources []string `json:"suggested_sources,omitempty"`
}

// BusMessage is the envelope published on per-agent channels during
// coordinate_execution. Dispatch is fire-and-forget.
type BusMessage struct {
	Type      string                 `json:"type"`
	TaskID    string                 `json:"task_id,omitempty"`
	Objective string                 `json:"objective,omitempty"`
	AgentID   string                 `json:"agent_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// InvestigationResult is the exposed outcome of one investigation run
type InvestigationResult struct {
	Success              bool     `json:"success"`
	SubtasksCreated      int      `json:"subtasks_created"`
	FindingsCollected    int      `json:"findings_collected"`
	RefinementsPerformed int      `json:"refinements_performed"`
	FinalSignalStrength  float64  `json:"final_signal_strength"`
	FinalAction          string   `json:"final_action"`
	Messages             []string `json:"messages"`
	Error                string   `json:"error,omitempty"`
}
