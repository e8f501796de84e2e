package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// jsonLineSink prints each approval event as one JSON line.
type jsonLineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func newJSONLineSink(w io.Writer) *jsonLineSink {
	return &jsonLineSink{w: w}
}

func (s *jsonLineSink) Emit(_ context.Context, event entities.ApprovalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%s\n", data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}
