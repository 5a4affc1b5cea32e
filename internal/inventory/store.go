package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gray-logic-hw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hw/native"
)

// Storage configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// defaultHistoryLimit applies when History is called with limit <= 0.
	defaultHistoryLimit = 50

	// maxHistoryLimit caps the rows a single History call can return.
	maxHistoryLimit = 200
)

// schema bootstraps the attach_events table on first open.
const schema = `
CREATE TABLE IF NOT EXISTS attach_events (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    event         TEXT    NOT NULL CHECK (event IN ('attach', 'detach')),
    serial_number INTEGER NOT NULL,
    class         TEXT    NOT NULL,
    hub_port      INTEGER NOT NULL,
    channel_index INTEGER NOT NULL,
    label         TEXT    NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_attach_events_serial
    ON attach_events(serial_number, created_at DESC);
`

// Event is one recorded attach or detach occurrence.
type Event struct {
	ID           int64
	Event        string
	SerialNumber int64
	Class        string
	HubPort      int
	ChannelIndex int
	Label        string
	CreatedAt    time.Time
}

// Store is an append-only SQLite log of hardware presence events.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The connection pool is
//     limited to one writer, matching SQLite's locking model.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the inventory store with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Bootstraps the schema
//  5. Sets file permissions (0600)
//
// Parameters:
//   - cfg: Inventory configuration from config.yaml
//
// Returns:
//   - *Store: Open store ready for use
//   - error: If the store is disabled, or open/bootstrap fails
func Open(cfg config.InventoryConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating inventory directory: %w", err)
	}

	// Connection string with pragmas.
	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening inventory database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying inventory database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("bootstrapping inventory schema: %w", err)
	}

	// Ignore error - file might not exist yet on first run
	_ = os.Chmod(cfg.Path, filePermissions)

	return &Store{db: db, path: cfg.Path}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing inventory database: %w", err)
	}
	s.db = nil
	return nil
}

// Path returns the filesystem path to the database file.
func (s *Store) Path() string {
	return s.path
}

// RecordAttach appends an attach event for the channel.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - info: Resolved identity reported by the runtime at attach time
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *Store) RecordAttach(ctx context.Context, info native.AttachInfo) error {
	return s.record(ctx, "attach", info)
}

// RecordDetach appends a detach event for the channel.
func (s *Store) RecordDetach(ctx context.Context, info native.AttachInfo) error {
	return s.record(ctx, "detach", info)
}

func (s *Store) record(ctx context.Context, event string, info native.AttachInfo) error {
	if s.db == nil {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attach_events (event, serial_number, class, hub_port, channel_index, label)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event,
		info.SerialNumber,
		info.Class.String(),
		info.HubPort,
		info.ChannelIndex,
		info.Label,
	)
	if err != nil {
		return fmt.Errorf("inserting %s event: %w", event, err)
	}

	return nil
}

// History returns recent presence events for a device, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - serialNumber: Device serial to query
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Event: Events ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *Store) History(ctx context.Context, serialNumber int64, limit int) ([]Event, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event, serial_number, class, hub_port, channel_index, label, created_at
		 FROM attach_events
		 WHERE serial_number = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		serialNumber,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attach events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Event, &e.SerialNumber, &e.Class,
			&e.HubPort, &e.ChannelIndex, &e.Label, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning attach event: %w", err)
		}

		if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			e.CreatedAt = t
		}

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attach events: %w", err)
	}

	return events, nil
}
