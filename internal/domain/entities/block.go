// Package entities contains core domain data structures.
package entities

// ContentBlock is a piece of readable page text together with the
// structural selector it was extracted from.
type ContentBlock struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

// FetchedPage is the raw outcome of retrieving a watched page.
type FetchedPage struct {
	URL          string `json:"url"`
	Status       int    `json:"status"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	HTML         string `json:"-"`
	Text         string `json:"-"`
}
