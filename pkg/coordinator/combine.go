package coordinator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// CombinedResult merges the aggregates of several sub-coordinators.
// Attribution survives the merge: every finding keeps its coordinator
// and source-type metadata, and the source aggregates ride along intact.
type CombinedResult struct {
	TotalFindings    int              `json:"total_findings"`
	FindingsBySource map[string]int   `json:"findings_by_source"`
	AgentsInvolved   []string         `json:"agents_involved"`
	Findings         []domain.Finding `json:"findings"`
	Aggregates       []*Aggregate     `json:"aggregates"`
	Summary          string           `json:"summary"`
}

// Combine merges N aggregates into a single attributed result
func Combine(aggregates []*Aggregate) *CombinedResult {
	combined := &CombinedResult{
		FindingsBySource: make(map[string]int),
		Aggregates:       aggregates,
	}

	agentSet := make(map[string]bool)
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		combined.TotalFindings += len(agg.Findings)
		combined.FindingsBySource[agg.SourceType] += len(agg.Findings)
		combined.Findings = append(combined.Findings, agg.Findings...)
		for _, agent := range agg.Agents {
			agentSet[agent] = true
		}
	}

	combined.AgentsInvolved = make([]string, 0, len(agentSet))
	for agent := range agentSet {
		combined.AgentsInvolved = append(combined.AgentsInvolved, agent)
	}
	sort.Strings(combined.AgentsInvolved)

	combined.Summary = summarize(combined)
	return combined
}

func summarize(c *CombinedResult) string {
	if c.TotalFindings == 0 {
		return "no findings collected across cohorts"
	}

	sources := make([]string, 0, len(c.FindingsBySource))
	for src := range c.FindingsBySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		parts = append(parts, fmt.Sprintf("%s: %d", src, c.FindingsBySource[src]))
	}

	return fmt.Sprintf("%d findings from %d agents (%s)",
		c.TotalFindings, len(c.AgentsInvolved), strings.Join(parts, ", "))
}
