package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// MockDecomposer is a mock implementation of Decomposer for testing
type MockDecomposer struct {
	mu            sync.Mutex
	Subtasks      []domain.DecomposedSubtask
	CallCount     int
	LastObjective string
	ShouldError   bool
	ErrorMessage  string
	// DecomposeFunc allows custom behavior per test
	DecomposeFunc func(ctx context.Context, objective string) ([]domain.DecomposedSubtask, error)
}

// NewMockDecomposer creates a mock decomposer yielding the given subtasks
func NewMockDecomposer(subtasks ...domain.DecomposedSubtask) *MockDecomposer {
	return &MockDecomposer{Subtasks: subtasks}
}

// Decompose implements domain.Decomposer
func (m *MockDecomposer) Decompose(ctx context.Context, objective string) ([]domain.DecomposedSubtask, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastObjective = objective
	m.mu.Unlock()

	if m.DecomposeFunc != nil {
		return m.DecomposeFunc(ctx, objective)
	}
	if m.ShouldError {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}
	return m.Subtasks, nil
}

// GetCallCount returns the number of Decompose calls made
func (m *MockDecomposer) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockRegistry is a mock implementation of AgentRegistry
type MockRegistry struct {
	mu           sync.Mutex
	Agents       []domain.Agent
	CallCount    int
	ShouldError  bool
	ErrorMessage string
}

// NewMockRegistry creates a mock registry with the given agents
func NewMockRegistry(agents ...domain.Agent) *MockRegistry {
	return &MockRegistry{Agents: agents}
}

// GetActiveAgents implements domain.AgentRegistry
func (m *MockRegistry) GetActiveAgents(ctx context.Context) ([]domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	if m.ShouldError {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}
	return m.Agents, nil
}

// MockBus is a mock implementation of MessageBus recording publishes
type MockBus struct {
	mu           sync.Mutex
	Published    map[string][]domain.BusMessage
	ShouldError  bool
	ErrorMessage string
}

// NewMockBus creates an empty mock bus
func NewMockBus() *MockBus {
	return &MockBus{Published: make(map[string][]domain.BusMessage)}
}

// Publish implements domain.MessageBus
func (m *MockBus) Publish(ctx context.Context, channel string, msg domain.BusMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ShouldError {
		return fmt.Errorf("%s", m.ErrorMessage)
	}
	m.Published[channel] = append(m.Published[channel], msg)
	return nil
}

// MessagesOn returns the messages published on a channel
func (m *MockBus) MessagesOn(channel string) []domain.BusMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BusMessage(nil), m.Published[channel]...)
}

// TotalPublished returns the total number of published messages
func (m *MockBus) TotalPublished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, msgs := range m.Published {
		total += len(msgs)
	}
	return total
}

// MockInvoker is a mock implementation of AgentInvoker
type MockInvoker struct {
	mu           sync.Mutex
	CallCount    int
	ShouldError  bool
	ErrorMessage string
	// InvokeFunc allows custom behavior per test
	InvokeFunc func(ctx context.Context, agent string, task *domain.Task) ([]domain.Finding, error)
}

// NewMockInvoker creates a mock invoker returning one finding per call
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{}
}

// Invoke implements domain.AgentInvoker
func (m *MockInvoker) Invoke(ctx context.Context, agent string, task *domain.Task) ([]domain.Finding, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, agent, task)
	}
	if m.ShouldError {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}

	return []domain.Finding{{
		Source:     "mock",
		Content:    fmt.Sprintf("Result for %s from %s", task.Objective, agent),
		AgentID:    agent,
		Confidence: 0.8,
		Timestamp:  time.Now(),
	}}, nil
}

// GetCallCount returns the number of Invoke calls made
func (m *MockInvoker) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
