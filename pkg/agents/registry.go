package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// StaticRegistry is a simple in-process implementation of AgentRegistry
type StaticRegistry struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

// NewStaticRegistry creates an empty agent registry
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		agents: make(map[string]domain.Agent),
	}
}

// NewDefaultRegistry creates a registry pre-populated with a small
// roster of worker agents covering the common source types.
func NewDefaultRegistry() *StaticRegistry {
	r := NewStaticRegistry()
	for _, a := range []domain.Agent{
		{Name: "wire_reader", Capabilities: []string{"news", "breaking"}},
		{Name: "feed_watcher", Capabilities: []string{"social"}},
		{Name: "doc_parser", Capabilities: []string{"document", "archive"}},
		{Name: "domain_expert", Capabilities: []string{"specialized", "analysis"}},
		{Name: domain.GeneralWorker, Capabilities: []string{"general"}},
	} {
		// rosters are built here, collisions cannot happen
		_ = r.Register(a)
	}
	return r
}

// Register adds an agent to the registry
func (r *StaticRegistry) Register(agent domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if agent.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}

	if _, exists := r.agents[agent.Name]; exists {
		return fmt.Errorf("agent %s already registered", agent.Name)
	}

	r.agents[agent.Name] = agent
	return nil
}

// Get retrieves an agent by name
func (r *StaticRegistry) Get(name string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[name]
	if !exists {
		return domain.Agent{}, fmt.Errorf("agent %s not found", name)
	}

	return agent, nil
}

// GetActiveAgents implements domain.AgentRegistry. Agents are returned
// in name order so assignment distribution is deterministic.
func (r *StaticRegistry) GetActiveAgents(ctx context.Context) ([]domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]domain.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Name < agents[j].Name
	})

	return agents, nil
}
