package entities

// ChangeType classifies how a candidate's content changed.
type ChangeType string

// Change types.
const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Candidate is a bounded, display-ready description of one detected change.
type Candidate struct {
	Title      string     `json:"title"`
	Evidence   string     `json:"evidence"`
	Selector   string     `json:"selector"`
	ChangeType ChangeType `json:"change_type"`
}

// ScoredCandidate pairs a candidate with its relevance score (0-3).
type ScoredCandidate struct {
	Candidate
	Score int `json:"score"`
}

// Candidates returns the plain candidates of a scored selection.
func Candidates(scored []ScoredCandidate) []Candidate {
	out := make([]Candidate, len(scored))
	for i := range scored {
		out[i] = scored[i].Candidate
	}
	return out
}

// Significance is the coarse business relevance of a change set.
type Significance string

// Significance levels.
const (
	SignificanceLow    Significance = "low"
	SignificanceMedium Significance = "medium"
	SignificanceHigh   Significance = "high"
)
