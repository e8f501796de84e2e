package mocks

import (
	"context"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// PageFetcher is a mock implementation of ports.PageFetcher.
type PageFetcher struct {
	Page *entities.FetchedPage
	Err  error

	CallCount int
	LastURL   string
}

// Fetch returns the configured page or error.
func (m *PageFetcher) Fetch(ctx context.Context, url string) (*entities.FetchedPage, error) {
	m.CallCount++
	m.LastURL = url
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Page == nil {
		return &entities.FetchedPage{URL: url, Status: 200}, nil
	}
	return m.Page, nil
}

// BlockExtractor is a mock implementation of ports.BlockExtractor.
type BlockExtractor struct {
	Blocks []entities.ContentBlock

	LastHTML string
}

// Extract returns the configured blocks.
func (m *BlockExtractor) Extract(html string) []entities.ContentBlock {
	m.LastHTML = html
	return m.Blocks
}
