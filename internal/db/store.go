// Package db exposes a Store interface that is passed to the API
// controllers, the resolver and the background workers.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

var (
	// ErrNotFound is returned by lookups and deletes that match no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = errors.New("already exists")
)

// UnitUpdate carries the mutable attributes of a unit; nil fields are left
// unchanged.
type UnitUpdate struct {
	Hostname   *string
	MACAddress *string
	Location   *string
	Resolution *string
	Status     *model.UnitStatus
}

type Store interface {
	// unit registry
	ListUnits(ctx context.Context) ([]model.SignageUnit, error)
	GetUnit(ctx context.Context, idOrHostname string) (model.SignageUnit, error)
	CreateUnit(ctx context.Context, unit model.SignageUnit) (model.SignageUnit, error)
	UpdateUnit(ctx context.Context, id string, update UnitUpdate) (model.SignageUnit, error)
	DeleteUnit(ctx context.Context, id string) error
	RecordHeartbeat(ctx context.Context, id string, at time.Time, currentPlaylistID *string) (model.SignageUnit, error)
	MarkStaleUnitsOffline(ctx context.Context, before time.Time) (int64, error)

	// content store
	ListContent(ctx context.Context) ([]model.MediaContent, error)
	GetContent(ctx context.Context, id string) (model.MediaContent, error)
	GetContentByIDs(ctx context.Context, ids []string) (map[string]model.MediaContent, error)
	CreateContent(ctx context.Context, content model.MediaContent) (model.MediaContent, error)
	DeleteContent(ctx context.Context, id string) error
	TotalContentSize(ctx context.Context) (int64, error)

	// playlist store
	ListPlaylists(ctx context.Context) ([]model.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (model.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist model.Playlist) (model.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AddPlaylistItem(ctx context.Context, playlistID, contentID string, order int) (model.PlaylistItem, error)
	RemovePlaylistItem(ctx context.Context, playlistID, contentID string) error
	PlaylistsContaining(ctx context.Context, contentID string) ([]string, error)

	// schedule store
	ListSchedules(ctx context.Context) ([]model.ScheduleAssignment, error)
	ListSchedulesForUnit(ctx context.Context, unitID string) ([]model.ScheduleAssignment, error)
	GetSchedule(ctx context.Context, id string) (model.ScheduleAssignment, error)
	CreateSchedule(ctx context.Context, schedule model.ScheduleAssignment) (model.ScheduleAssignment, error)
	DeleteSchedule(ctx context.Context, id string) error

	// users
	CreateUser(ctx context.Context, username, hashedPassword string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)

	Ping(ctx context.Context) error
	Close() error
}

type sqlStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// compile-time check that sqlStore implements Store
var _ Store = (*sqlStore)(nil)

// NewStore wraps an open connection. Migrations must already have run.
func NewStore(conn *sqlx.DB) Store {
	return &sqlStore{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

// Open connects, applies migrations and returns a ready Store.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	conn, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, conn, driver); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return NewStore(conn), nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// q rewrites "?" placeholders into the driver's bind style.
func (s *sqlStore) q(query string) string {
	return s.db.Rebind(query)
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// notFound normalizes sql.ErrNoRows so callers only test for ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is a unique or primary key
// violation from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// connection without extended result codes
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
