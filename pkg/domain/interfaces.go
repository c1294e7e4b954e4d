package domain

import (
	"context"
)

// Decomposer turns an objective into subtasks. Implementations may be
// backed by a language model; failures trigger the orchestrator's local
// deterministic fallback.
type Decomposer interface {
	Decompose(ctx context.Context, objective string) ([]DecomposedSubtask, error)
}

// AgentRegistry exposes the currently active worker agents
type AgentRegistry interface {
	GetActiveAgents(ctx context.Context) ([]Agent, error)
}

// MessageBus publishes dispatch messages on named channels.
// Publish failures are non-fatal to the caller.
type MessageBus interface {
	Publish(ctx context.Context, channel string, message BusMessage) error
}

// AgentInvoker executes one task on behalf of a named agent and returns
// the findings it produced. Sub-coordinators fall back to simulated
// findings when no invoker is configured.
type AgentInvoker interface {
	Invoke(ctx context.Context, agent string, task *Task) ([]Finding, error)
}
