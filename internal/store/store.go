// Package store persists trip snapshots.
package store

import (
	"context"

	"github.com/keilo/waytrack/internal/models"
)

// Store is the trip snapshot CRUD contract. Save assigns a fresh id and
// creation timestamp; callers never supply either. List returns snapshots
// newest-id-first. Delete of an unknown id is a silent success.
type Store interface {
	Save(ctx context.Context, tripID, locationData string) error
	List(ctx context.Context) ([]models.TripSnapshot, error)
	Delete(ctx context.Context, id int64) error
}
