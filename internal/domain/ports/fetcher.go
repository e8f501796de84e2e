// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// PageFetcher retrieves a watched page.
type PageFetcher interface {
	// Fetch returns the page or a *FetchError when it is disallowed or unreachable.
	Fetch(ctx context.Context, url string) (*entities.FetchedPage, error)
}

// BlockExtractor turns page HTML into readable blocks. It never fails and may
// return an empty slice.
type BlockExtractor interface {
	Extract(html string) []entities.ContentBlock
}
