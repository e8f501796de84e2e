package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
)

// DetectionOptions configures change detection.
type DetectionOptions struct {
	MaxBytes      int
	FetchTimeout  time.Duration
	MaxCandidates int
}

// ScrapeOutcome is the detection stage's contribution to a run.
type ScrapeOutcome struct {
	Page       *entities.FetchedPage
	Blocks     []entities.ContentBlock
	Document   string
	Digest     string
	PriorHash  string
	Changed    bool
	Diff       entities.DiffResult
	Candidates []entities.Candidate
}

// DetectionService fetches a page, fingerprints it and turns a change into candidates.
type DetectionService struct {
	fetcher   ports.PageFetcher
	extractor ports.BlockExtractor
	store     ports.SnapshotStore
	opts      DetectionOptions
	logger    *slog.Logger
}

// NewDetectionService creates a new detection service.
func NewDetectionService(fetcher ports.PageFetcher, extractor ports.BlockExtractor, store ports.SnapshotStore, opts DetectionOptions, logger *slog.Logger) *DetectionService {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultRequestTimeout
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionService{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		opts:      opts,
		logger:    logger.With("component", "detection"),
	}
}

// Scrape fetches url and reports whether its content changed since the stored snapshot.
// The only error it returns is a *ports.FetchError.
func (s *DetectionService) Scrape(ctx context.Context, url string, forceChange bool) (*ScrapeOutcome, error) {
	log := s.logger.With("url", url)
	prior := s.priorHash(ctx, url, log)

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	page, err := s.fetcher.Fetch(fetchCtx, url)
	cancel()
	if err != nil {
		var fe *ports.FetchError
		if !errors.As(err, &fe) {
			err = &ports.FetchError{URL: url, Err: err}
		}
		return nil, err
	}

	blocks := s.extractor.Extract(page.HTML)
	doc := Normalize(blocks, s.opts.MaxBytes)
	out := &ScrapeOutcome{
		Page:      page,
		Blocks:    blocks,
		Document:  doc,
		Digest:    Digest(doc),
		PriorHash: prior,
		Diff:      entities.DiffResult{Added: []entities.DiffEntry{}, Removed: []entities.DiffEntry{}, Changed: []entities.DiffEntry{}},
	}

	if !forceChange && prior != "" && prior == out.Digest {
		log.Info("no change detected", "hash", out.Digest)
		return out, nil
	}

	// Prior text is never stored, so every detected change is reported wholesale.
	out.Changed = true
	out.Diff = WholesaleAdded(blocks)
	out.Candidates = ExtractCandidates(out.Diff, s.opts.MaxCandidates)
	log.Info("change detected",
		"hash", out.Digest,
		"prior_hash", prior,
		"blocks", len(blocks),
		"candidates", len(out.Candidates),
		"forced", forceChange)
	return out, nil
}

func (s *DetectionService) priorHash(ctx context.Context, url string, log *slog.Logger) string {
	snap, err := s.store.Read(ctx, url)
	if err != nil {
		log.Warn("reading snapshot failed, treating page as new",
			"error", &ports.PersistenceError{Op: "read", Err: err})
		return ""
	}
	if snap == nil {
		return ""
	}
	return snap.Hash
}
