package analysis

import (
	"strings"
	"unicode"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// Per-finding score weights. Sum to 1.0.
const (
	weightKeywordMatch  = 0.3
	weightEntityDensity = 0.2
	weightCredibility   = 0.3
	weightInfoDensity   = 0.2

	keywordBoost = 1.5

	// An entity share of 15% of all words is treated as maximal density
	highEntityDensity = 0.15
)

// SignalStrength scores a set of findings for aggregate quality and
// relevance, averaging a weighted per-finding score. Returns 0 for an
// empty finding set.
func SignalStrength(findings []domain.Finding, keywords []string) float64 {
	if len(findings) == 0 {
		return 0
	}

	lowered := lowerAll(keywords)
	total := 0.0
	for _, f := range findings {
		total += findingScore(f, lowered)
	}
	return clamp01(total / float64(len(findings)))
}

func findingScore(f domain.Finding, keywords []string) float64 {
	return weightKeywordMatch*keywordMatch(f, keywords) +
		weightEntityDensity*entityDensity(f) +
		weightCredibility*credibility(f) +
		weightInfoDensity*informationDensity(f)
}

func keywordMatch(f domain.Finding, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0.5
	}

	haystack := strings.ToLower(f.Content)
	if kws, ok := metaStrings(f.Metadata, "keywords"); ok {
		haystack += " " + strings.ToLower(strings.Join(kws, " "))
	}

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			matched++
		}
	}

	return clamp01(float64(matched) / float64(len(keywords)) * keywordBoost)
}

func entityDensity(f domain.Finding) float64 {
	words := strings.Fields(f.Content)
	if len(words) == 0 {
		return 0
	}

	entities := 0
	if v, ok := metaStrings(f.Metadata, "entities"); ok {
		entities = len(v)
	} else if n, ok := metaInt(f.Metadata, "entity_count"); ok {
		entities = n
	} else {
		// Heuristic: capitalized tokens stand in for named entities
		for _, w := range words {
			runes := []rune(w)
			if len(runes) > 1 && unicode.IsUpper(runes[0]) {
				entities++
			}
		}
	}

	density := float64(entities) / float64(len(words))
	return clamp01(density / highEntityDensity)
}

func credibility(f domain.Finding) float64 {
	if f.Metadata != nil {
		switch v := f.Metadata["credibility"].(type) {
		case float64:
			return clamp01(v)
		case string:
			switch strings.ToLower(v) {
			case "high":
				return 0.9
			case "medium":
				return 0.7
			case "low":
				return 0.4
			}
		}
	}

	return sourceCredibility(f.Source)
}

// sourceCredibility is a coarse source-name fallback used only when no
// explicit credibility is attached.
func sourceCredibility(source string) float64 {
	s := strings.ToLower(source)
	switch {
	case s == "":
		return 0.3
	case containsAny(s, "reuters", "associated press", "afp", "bloomberg", "wire"):
		return 0.9
	case containsAny(s, "news", "times", "post", "bbc", "guardian", "journal"):
		return 0.7
	case containsAny(s, "twitter", "reddit", "forum", "social", "facebook"):
		return 0.5
	case containsAny(s, "anonymous", "unknown"):
		return 0.3
	default:
		return 0.6
	}
}

func informationDensity(f domain.Finding) float64 {
	wc := len(strings.Fields(f.Content))
	switch {
	case wc < 20:
		return 0.3
	case wc < 75:
		return 0.5
	case wc < 150:
		return 0.7
	case wc < 300:
		return 0.85
	default:
		return 1.0
	}
}

// Shared helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func metaStrings(meta map[string]interface{}, key string) ([]string, bool) {
	if meta == nil {
		return nil, false
	}
	switch v := meta[key].(type) {
	case []string:
		return v, len(v) > 0
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, len(out) > 0
	case string:
		if v != "" {
			return []string{v}, true
		}
	}
	return nil, false
}

func metaInt(meta map[string]interface{}, key string) (int, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
