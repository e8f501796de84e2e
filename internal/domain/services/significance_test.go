package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

func TestClassify(t *testing.T) {
	plain1 := entities.Candidate{Title: "Docs refresh", Evidence: "updated guides"}
	plain2 := entities.Candidate{Title: "Blog post", Evidence: "weekly roundup"}

	tests := []struct {
		name     string
		selected []entities.Candidate
		want     entities.Significance
	}{
		{name: "empty", want: entities.SignificanceLow},
		{name: "single plain", selected: []entities.Candidate{plain1}, want: entities.SignificanceLow},
		{name: "two plain", selected: []entities.Candidate{plain1, plain2}, want: entities.SignificanceMedium},
		{
			name:     "pricing term wins over count",
			selected: []entities.Candidate{{Title: "Pricing", Evidence: "changes"}},
			want:     entities.SignificanceHigh,
		},
		{
			name:     "term in evidence",
			selected: []entities.Candidate{plain1, {Title: "Update", Evidence: "Now with a New Feature"}},
			want:     entities.SignificanceHigh,
		},
		{
			name:     "enterprise",
			selected: []entities.Candidate{{Title: "ENTERPRISE", Evidence: ""}},
			want:     entities.SignificanceHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.selected))
		})
	}
}
