package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openinquiry/inquiry/pkg/analysis"
	"github.com/openinquiry/inquiry/pkg/domain"
)

func TestDiminishingReturns_NoHistory(t *testing.T) {
	newFindings := []domain.Finding{
		finding("wire", "Completely fresh material about the subject", nil),
	}
	assert.Equal(t, 1.0, analysis.DiminishingReturns(newFindings, nil))
	assert.Equal(t, 1.0, analysis.DiminishingReturns(newFindings, []domain.Finding{}))
}

func TestDiminishingReturns_NoNewFindings(t *testing.T) {
	existing := []domain.Finding{finding("wire", "Known material", nil)}
	assert.Equal(t, 0.0, analysis.DiminishingReturns(nil, existing))
}

func TestDiminishingReturns_IdenticalIsLow(t *testing.T) {
	existing := []domain.Finding{
		finding("wire", "Acme Corp announced the merger with Beta Industries in Geneva", nil),
		finding("social", "Discussion threads repeated the Acme announcement verbatim", nil),
	}
	identical := append([]domain.Finding(nil), existing...)

	score := analysis.DiminishingReturns(identical, existing)
	assert.Less(t, score, 0.5)
}

func TestDiminishingReturns_DisjointIsHigh(t *testing.T) {
	existing := []domain.Finding{
		finding("wire", "Acme Corp announced the merger with Beta Industries", nil),
	}
	fresh := []domain.Finding{
		finding("archive", "Regulatory filings reveal Previously undisclosed subsidiaries operating overseas", nil),
	}

	score := analysis.DiminishingReturns(fresh, existing)
	assert.Greater(t, score, 0.8)
}

func TestDiminishingReturns_DeclaredEntities(t *testing.T) {
	existing := []domain.Finding{
		finding("wire", "irrelevant text", map[string]interface{}{
			"entities": []string{"acme", "beta"},
		}),
	}
	overlapping := []domain.Finding{
		finding("wire", "irrelevant text", map[string]interface{}{
			"entities": []string{"acme", "beta"},
		}),
	}
	novel := []domain.Finding{
		finding("archive", "different words entirely present", map[string]interface{}{
			"entities": []string{"gamma", "delta"},
		}),
	}

	assert.Greater(t,
		analysis.DiminishingReturns(novel, existing),
		analysis.DiminishingReturns(overlapping, existing))
}

func TestDiminishingReturns_Bounded(t *testing.T) {
	existing := []domain.Finding{finding("wire", "base content for the vocabulary", nil)}
	mixed := []domain.Finding{
		finding("wire", "base content for the vocabulary", nil),
		finding("archive", "entirely novel supplementary reporting angle", nil),
	}

	score := analysis.DiminishingReturns(mixed, existing)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}
