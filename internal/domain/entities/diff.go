package entities

// DiffEntry is one paragraph that appeared in, or disappeared from, a page.
type DiffEntry struct {
	Text     string `json:"text"`
	Selector string `json:"selector"`
	Title    string `json:"title"`
}

// DiffResult groups paragraph-level differences between two documents.
// Changed is reserved for paired edit detection and is currently never populated;
// an empty Changed means "no edit pairing", not "no changes".
type DiffResult struct {
	Added   []DiffEntry `json:"added"`
	Removed []DiffEntry `json:"removed"`
	Changed []DiffEntry `json:"changed"`
}

// IsEmpty reports whether the diff carries no entries at all.
func (d DiffResult) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}
