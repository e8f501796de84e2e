package services

import (
	"slices"
	"strings"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

const (
	// MaxSelected is the maximum number of candidates kept for drafting.
	MaxSelected = 3
	// MinSelectScore is the score a candidate needs to be selected without forcing.
	MinSelectScore = 2
)

var (
	commercialTerms = []string{
		"price", "pricing", "plan", "feature", "new", "launch",
		"release", "changelog", "package", "tier", "trial",
	}
	segmentTerms = []string{
		"enterprise", "startup", "smb", "case study", "integration",
		"salesforce", "hubspot", "zendesk", "segment", "snowflake",
	}
)

// Score rates a candidate 0-3: one point each for a business keyword,
// a commercial signal, and an ICP/segment term.
func Score(c entities.Candidate, keywords []string) int {
	text := strings.ToLower(c.Title + " " + c.Evidence)

	score := 0
	if containsAny(text, lowerNonEmpty(keywords)) {
		score++
	}
	if containsAny(text, commercialTerms) {
		score++
	}
	if containsAny(text, segmentTerms) {
		score++
	}
	return score
}

// SelectCandidates keeps up to three candidates scoring at least 2, best first.
// With forceInclude and no qualifying candidate, the top three are returned anyway.
func SelectCandidates(cands []entities.Candidate, keywords []string, forceInclude bool) []entities.ScoredCandidate {
	scored := make([]entities.ScoredCandidate, len(cands))
	for i, c := range cands {
		scored[i] = entities.ScoredCandidate{Candidate: c, Score: Score(c, keywords)}
	}
	slices.SortStableFunc(scored, func(a, b entities.ScoredCandidate) int {
		return b.Score - a.Score
	})

	selected := make([]entities.ScoredCandidate, 0, MaxSelected)
	for _, sc := range scored {
		if sc.Score < MinSelectScore || len(selected) == MaxSelected {
			break
		}
		selected = append(selected, sc)
	}

	if len(selected) == 0 && forceInclude {
		selected = append(selected, scored[:min(len(scored), MaxSelected)]...)
	}
	return selected
}

func lowerNonEmpty(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
