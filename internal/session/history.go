package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
	"github.com/keilo/waytrack/internal/store"
)

// HistoryMetrics is the instrumentation slice for the history screen.
type HistoryMetrics interface {
	TripDeleted()
}

// History backs the saved-trips screen: read and delete over the trip store,
// with its own busy flag and status line.
type History struct {
	logger  *zap.Logger
	store   store.Store
	metrics HistoryMetrics // may be nil

	mu     sync.Mutex
	busy   bool
	status string
}

func NewHistory(logger *zap.Logger, st store.Store, metrics HistoryMetrics) *History {
	return &History{logger: logger, store: st, metrics: metrics}
}

// Refresh loads all snapshots, newest first, and the status line describing
// the result. A refresh while one is running returns no rows and ok=false.
func (h *History) Refresh(ctx context.Context) ([]models.TripSnapshot, string, bool) {
	if !h.begin() {
		return nil, "", false
	}
	defer h.end()

	items, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("Failed to load trip history", zap.Error(err))
		return nil, h.setStatus(fmt.Sprintf("Load failed: %v", err)), true
	}

	if len(items) == 0 {
		return items, h.setStatus("No saved trips yet."), true
	}
	return items, h.setStatus(fmt.Sprintf("Loaded %d record(s).", len(items))), true
}

// Delete removes one snapshot. Deleting an id that no longer exists still
// reports success; the store treats it as a no-op.
func (h *History) Delete(ctx context.Context, snapshot models.TripSnapshot) (string, bool) {
	if !h.begin() {
		return "", false
	}
	defer h.end()

	if err := h.store.Delete(ctx, snapshot.ID); err != nil {
		h.logger.Error("Failed to delete trip snapshot", zap.Int64("id", snapshot.ID), zap.Error(err))
		return h.setStatus(fmt.Sprintf("Delete failed: %v", err)), true
	}

	if h.metrics != nil {
		h.metrics.TripDeleted()
	}
	return h.setStatus(fmt.Sprintf("Deleted Trip ID: %s", snapshot.TripID)), true
}

// Status returns the last status line.
func (h *History) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *History) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy {
		return false
	}
	h.busy = true
	return true
}

func (h *History) end() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.busy = false
}

func (h *History) setStatus(status string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	return status
}
