package services

import (
	"strings"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

const (
	// DefaultMaxCandidates is the cap used when ExtractCandidates gets a non-positive max.
	DefaultMaxCandidates = 8

	candidateTitleLen    = 80
	candidateEvidenceLen = 140

	defaultAddedTitle    = "New content"
	defaultModifiedTitle = "Updated content"
)

// ExtractCandidates turns a diff into bounded, display-ready candidates.
// Added entries come first, then changed ones; removals are never candidates.
func ExtractCandidates(d entities.DiffResult, maxCount int) []entities.Candidate {
	if maxCount <= 0 {
		maxCount = DefaultMaxCandidates
	}

	cands := make([]entities.Candidate, 0, maxCount)
	for _, e := range d.Added {
		if len(cands) >= maxCount {
			return cands
		}
		cands = append(cands, newCandidate(e, entities.ChangeAdded))
	}
	for _, e := range d.Changed {
		if len(cands) >= maxCount {
			return cands
		}
		cands = append(cands, newCandidate(e, entities.ChangeModified))
	}
	return cands
}

func newCandidate(e entities.DiffEntry, ct entities.ChangeType) entities.Candidate {
	title := e.Title
	if title == "" {
		title = defaultAddedTitle
		if ct == entities.ChangeModified {
			title = defaultModifiedTitle
		}
	}

	return entities.Candidate{
		Title:      truncateWithMarker(title, candidateTitleLen),
		Evidence:   truncateWithMarker(strings.TrimSpace(e.Text), candidateEvidenceLen),
		Selector:   e.Selector,
		ChangeType: ct,
	}
}
