package handlers

import (
	"fmt"

	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

// InitHandler writes a starter configuration file.
type InitHandler struct{}

// NewInitHandler creates a new init handler.
func NewInitHandler() *InitHandler {
	return &InitHandler{}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath      string
	SnapshotBackend string
	SQLitePath      string
}

// Handle writes the default config to path (or the default location) and
// checks that it loads.
func (h *InitHandler) Handle(path string) (*InitResult, error) {
	target, _ := config.ResolvePath(path)
	if config.Exists(target) {
		return nil, fmt.Errorf("pagewatch already initialized: %s exists", target)
	}

	if err := config.WriteDefault(target); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(target)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &InitResult{
		ConfigPath:      target,
		SnapshotBackend: cfg.Snapshot.Backend,
		SQLitePath:      cfg.Snapshot.SQLitePath,
	}, nil
}
