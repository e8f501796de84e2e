package services

import (
	"regexp"
	"strings"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

const (
	// MaxWholesaleBlocks caps how many blocks a first-change diff reports.
	MaxWholesaleBlocks = 50
	// diffTitleLen is the character cap for diff entry titles.
	diffTitleLen = 60
)

var paragraphBoundary = regexp.MustCompile(`\n{2,}|[.!?]`)

// Diff compares two documents paragraph by paragraph.
// Added and Removed are set differences in first-occurrence order; Changed stays empty.
func Diff(oldText, newText string) entities.DiffResult {
	oldParas := splitParagraphs(oldText)
	newParas := splitParagraphs(newText)

	return entities.DiffResult{
		Added:   difference(newParas, oldParas),
		Removed: difference(oldParas, newParas),
		Changed: []entities.DiffEntry{},
	}
}

// WholesaleAdded reports every block as added. Used when there is no prior
// text to compare against or a change is forced.
func WholesaleAdded(blocks []entities.ContentBlock) entities.DiffResult {
	n := min(len(blocks), MaxWholesaleBlocks)
	added := make([]entities.DiffEntry, 0, n)
	for _, b := range blocks[:n] {
		added = append(added, newDiffEntry(b.Text, b.Selector))
	}

	return entities.DiffResult{
		Added:   added,
		Removed: []entities.DiffEntry{},
		Changed: []entities.DiffEntry{},
	}
}

func splitParagraphs(text string) []string {
	collapsed := CollapseWhitespace(text)
	if collapsed == "" {
		return nil
	}

	var paras []string
	for _, p := range paragraphBoundary.Split(collapsed, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// difference returns the unique paragraphs of a that are not in b.
func difference(a, b []string) []entities.DiffEntry {
	exclude := make(map[string]struct{}, len(b))
	for _, p := range b {
		exclude[p] = struct{}{}
	}

	seen := make(map[string]struct{}, len(a))
	entries := []entities.DiffEntry{}
	for _, p := range a {
		if _, ok := exclude[p]; ok {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		entries = append(entries, newDiffEntry(p, ""))
	}
	return entries
}

func newDiffEntry(text, selector string) entities.DiffEntry {
	return entities.DiffEntry{
		Text:     text,
		Selector: selector,
		Title:    truncateWithMarker(text, diffTitleLen),
	}
}
