package ports

import (
	"errors"
	"fmt"
)

// ErrRobotsDisallowed is wrapped by a FetchError when robots.txt forbids the URL.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// FetchError reports that a page could not be retrieved. It aborts the run.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// GenerationError reports a failed draft generation. Callers substitute fallback text.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating draft: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ChannelError reports a failed notification transport call. Approval stays pending.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("approval channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// PersistenceError reports a failed snapshot read or write. It is logged, never fatal.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
