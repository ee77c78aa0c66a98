package store

import (
	"context"
	"sync"
	"time"

	"github.com/keilo/waytrack/internal/models"
)

// Memory is an in-memory Store used when no database is configured and by
// tests. Semantics mirror the Postgres store: store-assigned monotonic ids,
// newest-id-first listing, silent delete of unknown ids.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	rows   []models.TripSnapshot
}

func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) Save(ctx context.Context, tripID, locationData string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, models.TripSnapshot{
		ID:           m.nextID,
		TripID:       tripID,
		LocationData: locationData,
		SavedAtUtc:   time.Now().UTC(),
	})
	m.nextID++
	return nil
}

func (m *Memory) List(ctx context.Context) ([]models.TripSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.TripSnapshot, 0, len(m.rows))
	for i := len(m.rows) - 1; i >= 0; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}
