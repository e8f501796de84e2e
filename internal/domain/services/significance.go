package services

import (
	"strings"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

var highSignificanceTerms = []string{"pricing", "price", "plan", "enterprise", "launch", "new feature"}

// Classify assigns a coarse significance to the selected candidates.
func Classify(selected []entities.Candidate) entities.Significance {
	if len(selected) == 0 {
		return entities.SignificanceLow
	}

	var sb strings.Builder
	for _, c := range selected {
		sb.WriteString(c.Title)
		sb.WriteString(" ")
		sb.WriteString(c.Evidence)
		sb.WriteString(" ")
	}
	if containsAny(strings.ToLower(sb.String()), highSignificanceTerms) {
		return entities.SignificanceHigh
	}

	if len(selected) >= 2 {
		return entities.SignificanceMedium
	}
	return entities.SignificanceLow
}
