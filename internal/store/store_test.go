package store

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

func TestMemory_SaveListRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	before := time.Now().UTC()
	if err := m.Save(ctx, "Trip0001", "Current:1.000000,2.000000; Destination:"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := m.Save(ctx, "Trip0002", "Current:; Destination:3.000000,4.000000"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(list))
	}

	// Newest id first.
	if list[0].TripID != "Trip0002" || list[1].TripID != "Trip0001" {
		t.Errorf("List() order = [%s, %s], want newest first", list[0].TripID, list[1].TripID)
	}
	if list[0].ID <= list[1].ID {
		t.Errorf("ids not monotonic: %d then %d", list[1].ID, list[0].ID)
	}
	if list[1].LocationData != "Current:1.000000,2.000000; Destination:" {
		t.Errorf("LocationData = %q", list[1].LocationData)
	}
	if list[0].SavedAtUtc.Before(before) {
		t.Errorf("SavedAtUtc %v before call time %v", list[0].SavedAtUtc, before)
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Save(ctx, "Trip0001", "Current:; Destination:")
	list, _ := m.List(ctx)
	id := list[0].ID

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	list, _ = m.List(ctx)
	for _, row := range list {
		if row.ID == id {
			t.Errorf("snapshot %d still present after delete", id)
		}
	}

	// Unknown id is a silent success.
	if err := m.Delete(ctx, 9999); err != nil {
		t.Errorf("Delete(unknown) error = %v, want nil", err)
	}
}

func TestMemory_IDsNeverReused(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Save(ctx, "Trip0001", "d")
	list, _ := m.List(ctx)
	first := list[0].ID
	_ = m.Delete(ctx, first)

	_ = m.Save(ctx, "Trip0002", "d")
	list, _ = m.List(ctx)
	if list[0].ID == first {
		t.Errorf("id %d was reused after delete", first)
	}
}

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresWithDB(zap.NewNop(), db), mock
}

func TestPostgres_SaveInitializesLazily(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trip_snapshots")).
		WithArgs("Trip0001", "Current:1.000000,2.000000; Destination:", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trip_snapshots")).
		WithArgs("Trip0002", "Current:; Destination:", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	ctx := context.Background()
	if err := s.Save(ctx, "Trip0001", "Current:1.000000,2.000000; Destination:"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	// Second save must not re-run the migration.
	if err := s.Save(ctx, "Trip0002", "Current:; Destination:"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgres_ConcurrentFirstUseInitializesOnce(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trip_snapshots")).
		WithArgs("TripA001", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trip_snapshots")).
		WithArgs("TripA001", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Save(ctx, "TripA001", "Current:; Destination:")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Save() failed: %v", err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgres_List(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, trip_id, location_data, saved_at_utc")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "location_data", "saved_at_utc"}).
			AddRow(int64(2), "Trip0002", "Current:; Destination:", now).
			AddRow(int64(1), "Trip0001", "Current:1.000000,2.000000; Destination:", now))

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != 2 || list[1].ID != 1 {
		t.Errorf("List() = %+v, want ids [2, 1]", list)
	}
}

func TestPostgres_DeleteUnknownIDIsSilent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trip_snapshots WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), 42); err != nil {
		t.Errorf("Delete() error = %v, want nil for unknown id", err)
	}
}

func TestPostgres_FailedInitRetriesOnNextCall(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_snapshots")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trip_snapshots")).
		WithArgs("Trip0001", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	ctx := context.Background()
	if err := s.Save(ctx, "Trip0001", "d"); err == nil {
		t.Fatal("first Save() should surface the init failure")
	}
	if err := s.Save(ctx, "Trip0001", "d"); err != nil {
		t.Fatalf("second Save() should retry init, got %v", err)
	}
}
