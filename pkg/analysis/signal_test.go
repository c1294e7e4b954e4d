package analysis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openinquiry/inquiry/pkg/analysis"
	"github.com/openinquiry/inquiry/pkg/domain"
)

func finding(source, content string, meta map[string]interface{}) domain.Finding {
	return domain.Finding{
		Source:     source,
		Content:    content,
		AgentID:    "agent-1",
		Confidence: 0.8,
		Timestamp:  time.Now(),
		Metadata:   meta,
	}
}

func TestSignalStrength_Empty(t *testing.T) {
	assert.Equal(t, 0.0, analysis.SignalStrength(nil, []string{"merger"}))
	assert.Equal(t, 0.0, analysis.SignalStrength([]domain.Finding{}, nil))
}

func TestSignalStrength_Bounds(t *testing.T) {
	findings := []domain.Finding{
		finding("reuters wire", "Acme Corp confirmed the merger with Beta Industries during talks in Geneva", nil),
		finding("forum", "ok", nil),
	}

	score := analysis.SignalStrength(findings, []string{"merger", "acme"})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestSignalStrength_RewardsRelevance(t *testing.T) {
	keywords := []string{"merger", "acquisition"}

	relevant := []domain.Finding{
		finding("reuters wire",
			"The merger and the related acquisition were confirmed by Acme Corp officials "+
				"in a statement that detailed the transaction terms, the Regulatory filings "+
				"and the expected Closing timeline across European and American markets", nil),
	}
	irrelevant := []domain.Finding{
		finding("anonymous", "nothing relevant here", nil),
	}

	assert.Greater(t,
		analysis.SignalStrength(relevant, keywords),
		analysis.SignalStrength(irrelevant, keywords))
}

func TestSignalStrength_CredibilityLabels(t *testing.T) {
	content := "A report on the ongoing merger talks between the parties involved"

	high := []domain.Finding{finding("somewhere", content, map[string]interface{}{"credibility": "high"})}
	low := []domain.Finding{finding("somewhere", content, map[string]interface{}{"credibility": "low"})}

	diff := analysis.SignalStrength(high, nil) - analysis.SignalStrength(low, nil)
	// weightCredibility 0.3 over a 0.5 label gap
	assert.InDelta(t, 0.15, diff, 0.001)
}

func TestSignalStrength_ExplicitCredibilityScore(t *testing.T) {
	content := "A short note"

	explicit := []domain.Finding{finding("somewhere", content, map[string]interface{}{"credibility": 1.0})}
	fallback := []domain.Finding{finding("somewhere", content, nil)}

	assert.Greater(t,
		analysis.SignalStrength(explicit, nil),
		analysis.SignalStrength(fallback, nil))
}

func TestSignalStrength_EntityMetadata(t *testing.T) {
	content := "the deal closed yesterday after months of quiet negotiation between both sides"

	tagged := []domain.Finding{finding("news desk", content, map[string]interface{}{
		"entities": []string{"acme", "beta", "geneva"},
	})}
	plain := []domain.Finding{finding("news desk", content, nil)}

	assert.Greater(t,
		analysis.SignalStrength(tagged, nil),
		analysis.SignalStrength(plain, nil))
}
