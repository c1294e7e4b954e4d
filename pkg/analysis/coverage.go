package analysis

import (
	"strings"
	"sync"
	"time"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// Coverage dimension names
const (
	DimSourceDiversity    = "source_diversity"
	DimGeographicCoverage = "geographic_coverage"
	DimTemporalCoverage   = "temporal_coverage"
	DimTopicCompleteness  = "topic_completeness"
)

// DefaultCoverageThresholds are the per-dimension minimums used by
// Sufficient when no explicit thresholds are given.
var DefaultCoverageThresholds = map[string]float64{
	DimSourceDiversity:    0.7,
	DimGeographicCoverage: 0.6,
	DimTemporalCoverage:   0.5,
	DimTopicCompleteness:  0.6,
}

// CoverageTargets defines what a fully covered investigation looks like
type CoverageTargets struct {
	SourceCount       int
	Locations         []string
	ExpectedSubtopics []string
	TimeRangeDays     float64
}

// Coverage tracks how far accumulated findings span the target
// dimensions. Observed sets only grow within an investigation; one
// Coverage instance belongs to exactly one orchestrator.
type Coverage struct {
	mu sync.Mutex

	targets CoverageTargets

	sources   map[string]bool
	locations map[string]bool
	subtopics map[string]bool
	earliest  time.Time
	latest    time.Time
}

// NewCoverage creates coverage tracking for the given targets. A zero
// SourceCount defaults to 5 distinct sources.
func NewCoverage(targets CoverageTargets) *Coverage {
	if targets.SourceCount <= 0 {
		targets.SourceCount = 5
	}
	return &Coverage{
		targets:   targets,
		sources:   make(map[string]bool),
		locations: make(map[string]bool),
		subtopics: make(map[string]bool),
	}
}

// Update accumulates one finding into the observed sets
func (c *Coverage) Update(f domain.Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Source != "" {
		c.sources[strings.ToLower(f.Source)] = true
	}

	if locs, ok := metaStrings(f.Metadata, "locations"); ok {
		for _, loc := range locs {
			c.locations[strings.ToLower(loc)] = true
		}
	} else if loc, ok := metaString(f.Metadata, "location"); ok {
		c.locations[strings.ToLower(loc)] = true
	}

	if tops, ok := metaStrings(f.Metadata, "subtopics"); ok {
		for _, t := range tops {
			c.subtopics[strings.ToLower(t)] = true
		}
	} else if t, ok := metaString(f.Metadata, "subtopic"); ok {
		c.subtopics[strings.ToLower(t)] = true
	}

	if !f.Timestamp.IsZero() {
		if c.earliest.IsZero() || f.Timestamp.Before(c.earliest) {
			c.earliest = f.Timestamp
		}
		if c.latest.IsZero() || f.Timestamp.After(c.latest) {
			c.latest = f.Timestamp
		}
	}
}

// Overall returns the per-dimension coverage ratios, each clamped to
// [0, 1].
func (c *Coverage) Overall() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return map[string]float64{
		DimSourceDiversity:    clamp01(float64(len(c.sources)) / float64(c.targets.SourceCount)),
		DimGeographicCoverage: c.setCoverage(c.locations, c.targets.Locations),
		DimTemporalCoverage:   c.temporalCoverage(),
		DimTopicCompleteness:  c.setCoverage(c.subtopics, c.targets.ExpectedSubtopics),
	}
}

// Sufficient reports whether every dimension meets its threshold. A nil
// thresholds map uses the defaults.
func (c *Coverage) Sufficient(thresholds map[string]float64) bool {
	if thresholds == nil {
		thresholds = DefaultCoverageThresholds
	}
	overall := c.Overall()
	for dim, min := range thresholds {
		if overall[dim] < min {
			return false
		}
	}
	return true
}

// setCoverage scores an observed set against a target set; with no
// targets it treats 5 distinct observations as complete.
func (c *Coverage) setCoverage(observed map[string]bool, targets []string) float64 {
	if len(targets) == 0 {
		return clamp01(float64(len(observed)) / 5.0)
	}
	matched := 0
	for _, t := range targets {
		if observed[strings.ToLower(t)] {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(len(targets)))
}

func (c *Coverage) temporalCoverage() float64 {
	if c.earliest.IsZero() || c.latest.IsZero() {
		return 0
	}
	if c.targets.TimeRangeDays <= 0 {
		// No expected span: any observed timeline counts as covered
		return 1.0
	}
	spanDays := c.latest.Sub(c.earliest).Hours() / 24
	return clamp01(spanDays / c.targets.TimeRangeDays)
}

func metaString(meta map[string]interface{}, key string) (string, bool) {
	if meta == nil {
		return "", false
	}
	if v, ok := meta[key].(string); ok && v != "" {
		return v, true
	}
	return "", false
}
