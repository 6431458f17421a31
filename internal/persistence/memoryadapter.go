package persistence

import (
	"context"
	"sync"

	"kaleidoscope/internal/logger"
	"kaleidoscope/internal/routingtable"
)

// MemoryAdapter keeps the last-stored Snapshot in memory. Volatile,
// dependency-free, intended for tests and single-process demos where a
// file on disk is unwanted.
type MemoryAdapter struct {
	logger   logger.Logger
	mu       sync.RWMutex
	snapshot routingtable.Snapshot
	has      bool
}

// NewMemoryAdapter builds an empty MemoryAdapter.
func NewMemoryAdapter(lgr logger.Logger) *MemoryAdapter {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &MemoryAdapter{logger: lgr}
}

// Store keeps snapshot as given, replacing whatever was stored before. The
// Routes map and OrderedNeighbors slice are shared with the caller, not
// deep-copied.
func (a *MemoryAdapter) Store(ctx context.Context, snapshot routingtable.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = snapshot
	a.has = true
	a.logger.Debug("stored snapshot in memory", logger.F("routes", len(snapshot.Routes)))
	return nil
}

// Load returns the last-stored Snapshot, or an empty Snapshot if Store was
// never called. Unlike FileAdapter, it never runs the result back through
// routingtable.ValidateSnapshot: the value returned here is always the
// exact Snapshot handed to Store, never reconstructed from a serialized
// string form, so there's no decode step that could land on a
// structurally invalid document.
func (a *MemoryAdapter) Load(ctx context.Context) (routingtable.Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.has {
		return routingtable.Snapshot{}, nil
	}
	return a.snapshot, nil
}
