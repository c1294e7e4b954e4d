package orchestrator

import (
	"testing"

	"github.com/openinquiry/inquiry/pkg/analysis"
	"github.com/openinquiry/inquiry/pkg/config"
	"github.com/openinquiry/inquiry/pkg/domain"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(config.Default())
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	return o
}

var unmetCoverage = map[string]float64{
	analysis.DimSourceDiversity:    0.1,
	analysis.DimGeographicCoverage: 0.1,
}

var metCoverage = map[string]float64{
	analysis.DimSourceDiversity:    0.8,
	analysis.DimGeographicCoverage: 0.7,
}

func TestDecide_HardCapBeatsStrongSignal(t *testing.T) {
	o := newTestOrchestrator(t)

	// At the ceiling, a near-perfect signal must not reopen refinement
	action, branch := o.decide(5, 5, 0.99, unmetCoverage, false)
	if action != domain.ActionSynthesize {
		t.Errorf("expected synthesize, got %s", action)
	}
	if branch != 2 {
		t.Errorf("expected branch 2, got %d", branch)
	}
}

func TestDecide_SafetyValve(t *testing.T) {
	o := newTestOrchestrator(t)

	action, branch := o.decide(7, 5, 0.99, unmetCoverage, false)
	if action != domain.ActionSynthesize || branch != 1 {
		t.Errorf("expected synthesize via branch 1, got %s branch %d", action, branch)
	}
}

func TestDecide_DiminishingReturns(t *testing.T) {
	o := newTestOrchestrator(t)

	action, branch := o.decide(3, 10, 0.5, unmetCoverage, true)
	if action != domain.ActionSynthesize || branch != 3 {
		t.Errorf("expected synthesize via branch 3, got %s branch %d", action, branch)
	}

	// Deep iteration without diminishing returns also caps out
	action, branch = o.decide(6, 10, 0.5, unmetCoverage, false)
	if action != domain.ActionSynthesize || branch != 3 {
		t.Errorf("expected synthesize via branch 3, got %s branch %d", action, branch)
	}
}

func TestDecide_StrongSignalUnmetCoverage(t *testing.T) {
	o := newTestOrchestrator(t)

	// Early on, strong signal with coverage gaps warrants refinement
	action, branch := o.decide(1, 5, 0.9, unmetCoverage, false)
	if action != domain.ActionRefine || branch != 4 {
		t.Errorf("expected refine via branch 4, got %s branch %d", action, branch)
	}

	// Near the ceiling there is no room for another cycle
	action, branch = o.decide(4, 5, 0.9, unmetCoverage, false)
	if action != domain.ActionSynthesize || branch != 4 {
		t.Errorf("expected synthesize via branch 4, got %s branch %d", action, branch)
	}
}

func TestDecide_CoverageMet(t *testing.T) {
	o := newTestOrchestrator(t)

	action, branch := o.decide(2, 5, 0.5, metCoverage, false)
	if action != domain.ActionSynthesize || branch != 5 {
		t.Errorf("expected synthesize via branch 5, got %s branch %d", action, branch)
	}
}

func TestDecide_MinimumExploration(t *testing.T) {
	o := newTestOrchestrator(t)

	for count := 0; count < 2; count++ {
		action, branch := o.decide(count, 5, 0.2, unmetCoverage, false)
		if action != domain.ActionRefine || branch != 6 {
			t.Errorf("count=%d: expected refine via branch 6, got %s branch %d", count, action, branch)
		}
	}
}

func TestDecide_DefaultSafe(t *testing.T) {
	o := newTestOrchestrator(t)

	action, branch := o.decide(3, 10, 0.5, unmetCoverage, false)
	if action != domain.ActionSynthesize || branch != 7 {
		t.Errorf("expected synthesize via branch 7, got %s branch %d", action, branch)
	}
}

func TestDecide_Termination(t *testing.T) {
	o := newTestOrchestrator(t)

	// From any starting count, repeatedly applying the tree with refine
	// advancing the counter must synthesize within limit+1 cycles.
	for start := 0; start <= 6; start++ {
		count := start
		limit := 5
		cycles := 0
		for {
			action, _ := o.decide(count, limit, 0.9, unmetCoverage, false)
			if action == domain.ActionSynthesize {
				break
			}
			count++
			cycles++
			if cycles > limit+1 {
				t.Fatalf("start=%d: no synthesize within %d cycles", start, limit+1)
			}
		}
	}
}

func TestCoverageMet_Defaults(t *testing.T) {
	o := newTestOrchestrator(t)
	o.cfg.Investigation.CoverageThresholds = nil

	if o.coverageMet(unmetCoverage) {
		t.Error("unmet coverage reported as met")
	}
	if !o.coverageMet(metCoverage) {
		t.Error("met coverage reported as unmet")
	}
}
