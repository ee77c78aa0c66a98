package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

const migrationCreateTripSnapshots = `
CREATE TABLE IF NOT EXISTS trip_snapshots (
    id BIGSERIAL PRIMARY KEY,
    trip_id TEXT NOT NULL,
    location_data TEXT NOT NULL,
    saved_at_utc TIMESTAMP WITH TIME ZONE NOT NULL
);
`

// Postgres stores trip snapshots in PostgreSQL. The connection is opened
// lazily on first use inside a single critical section, so concurrent first
// callers converge on exactly one open/create-table sequence. A failed
// attempt leaves the store uninitialized and the next caller retries.
type Postgres struct {
	logger      *zap.Logger
	databaseURL string

	mu          sync.Mutex
	db          *sql.DB
	initialized bool
}

func NewPostgres(logger *zap.Logger, databaseURL string) *Postgres {
	return &Postgres{logger: logger, databaseURL: databaseURL}
}

// NewPostgresWithDB injects an existing connection, used by tests. The
// create-table migration still runs lazily on first use.
func NewPostgresWithDB(logger *zap.Logger, db *sql.DB) *Postgres {
	return &Postgres{logger: logger, db: db}
}

func (s *Postgres) ensureInitialized(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return s.db, nil
	}

	if s.db == nil {
		db, err := sql.Open("pgx", s.databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		s.db = db
	}

	if _, err := s.db.ExecContext(ctx, migrationCreateTripSnapshots); err != nil {
		return nil, fmt.Errorf("create trip_snapshots table: %w", err)
	}

	s.initialized = true
	s.logger.Info("Trip store initialized")
	return s.db, nil
}

func (s *Postgres) Save(ctx context.Context, tripID, locationData string) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trip_snapshots (trip_id, location_data, saved_at_utc)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := db.QueryRowContext(ctx, query, tripID, locationData, time.Now().UTC()).Scan(&id); err != nil {
		return fmt.Errorf("insert trip snapshot: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]models.TripSnapshot, error) {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, trip_id, location_data, saved_at_utc
		FROM trip_snapshots ORDER BY id DESC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list trip snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.TripSnapshot
	for rows.Next() {
		var snap models.TripSnapshot
		if err := rows.Scan(&snap.ID, &snap.TripID, &snap.LocationData, &snap.SavedAtUtc); err != nil {
			return nil, fmt.Errorf("scan trip snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *Postgres) Delete(ctx context.Context, id int64) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM trip_snapshots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete trip snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying connection, if one was ever opened.
func (s *Postgres) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
