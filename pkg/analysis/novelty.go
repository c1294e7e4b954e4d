package analysis

import (
	"strings"
	"unicode"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// Novelty blend weights. Sum to 1.0.
const (
	weightSourceNovelty  = 0.3
	weightEntityNovelty  = 0.4
	weightContentNovelty = 0.3

	// 30% previously unseen words counts as fully novel content
	fullNoveltyWordRatio = 0.3

	// DefaultNoveltyThreshold is the score below which callers should
	// treat returns as diminishing.
	DefaultNoveltyThreshold = 0.2
)

// DiminishingReturns measures how much novel information the new
// findings contribute relative to the existing ones, as a score in
// [0, 1]. With no existing findings everything is novel and the score is
// 1.0. The caller compares the score against its novelty threshold; this
// function makes no stop/continue decision itself.
func DiminishingReturns(newFindings, existingFindings []domain.Finding) float64 {
	if len(existingFindings) == 0 {
		return 1.0
	}
	if len(newFindings) == 0 {
		return 0
	}

	score := weightSourceNovelty*sourceNovelty(newFindings, existingFindings) +
		weightEntityNovelty*entityNovelty(newFindings, existingFindings) +
		weightContentNovelty*contentNovelty(newFindings, existingFindings)
	return clamp01(score)
}

func sourceNovelty(newFindings, existing []domain.Finding) float64 {
	known := make(map[string]bool)
	for _, f := range existing {
		known[strings.ToLower(f.Source)] = true
	}

	seen := make(map[string]bool)
	novel := 0
	total := 0
	for _, f := range newFindings {
		src := strings.ToLower(f.Source)
		if seen[src] {
			continue
		}
		seen[src] = true
		total++
		if !known[src] {
			novel++
		}
	}

	if total == 0 {
		return 0.5
	}
	return float64(novel) / float64(total)
}

func entityNovelty(newFindings, existing []domain.Finding) float64 {
	known := make(map[string]bool)
	for _, f := range existing {
		for _, e := range findingEntities(f) {
			known[e] = true
		}
	}

	seen := make(map[string]bool)
	novel := 0
	total := 0
	for _, f := range newFindings {
		for _, e := range findingEntities(f) {
			if seen[e] {
				continue
			}
			seen[e] = true
			total++
			if !known[e] {
				novel++
			}
		}
	}

	if total == 0 {
		return 0.5
	}
	return float64(novel) / float64(total)
}

// findingEntities collects declared entities or keywords, falling back
// to capitalized tokens in the content.
func findingEntities(f domain.Finding) []string {
	if v, ok := metaStrings(f.Metadata, "entities"); ok {
		return lowerAll(v)
	}
	if v, ok := metaStrings(f.Metadata, "keywords"); ok {
		return lowerAll(v)
	}

	var out []string
	for _, w := range strings.Fields(f.Content) {
		runes := []rune(w)
		if len(runes) > 1 && unicode.IsUpper(runes[0]) {
			out = append(out, strings.ToLower(strings.Trim(w, ".,;:!?\"'()")))
		}
	}
	return out
}

func contentNovelty(newFindings, existing []domain.Finding) float64 {
	vocab := make(map[string]bool)
	for _, f := range existing {
		for _, w := range contentWords(f.Content) {
			vocab[w] = true
		}
	}

	total := 0
	novel := 0
	for _, f := range newFindings {
		for _, w := range contentWords(f.Content) {
			total++
			if !vocab[w] {
				novel++
			}
		}
	}

	if total == 0 {
		return 0
	}
	ratio := float64(novel) / float64(total)
	return clamp01(ratio / fullNoveltyWordRatio)
}

// contentWords returns lowercased word tokens longer than three runes
func contentWords(content string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len([]rune(w)) > 3 {
			out = append(out, w)
		}
	}
	return out
}
