package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"ucraft/trafficlogger/pkg/traffic"
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is the database/sql driver name: "sqlite" (modernc, pure Go)
	// or "sqlite3" (mattn, cgo).
	// Default: "sqlite"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/traffic.db",
		Driver:       "sqlite",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// StoredRecord is one row read back from the SQLite backend.
type StoredRecord struct {
	ID        string
	CreatedAt time.Time
	Method    string
	Status    int
	Payload   []byte
}

// SQLiteSink writes each dump as one row.
type SQLiteSink struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteSink opens the database and initializes the schema.
func NewSQLiteSink(config *SQLiteConfig) (*SQLiteSink, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite"
	}

	logger := slog.Default().With("component", "traffic.sink.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, traffic.NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, traffic.NewStorageError("sqlite", "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	s := &SQLiteSink{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite sink initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets pragmas and creates the schema.
func (s *SQLiteSink) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return traffic.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return traffic.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return traffic.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return traffic.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return traffic.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return traffic.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Name implements traffic.Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Store inserts the dump and returns the record identifier.
func (s *SQLiteSink) Store(ctx context.Context, entry traffic.Entry) (string, error) {
	method, status := summarize(entry.Payload)

	var statusVal any
	if status != 0 {
		statusVal = status
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO traffic_records (id, created_at, method, status, payload) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.CreatedAt.UTC(), method, statusVal, string(entry.Payload),
	)
	if err != nil {
		return "", traffic.NewStorageError("sqlite", "store", err)
	}

	return entry.ID, nil
}

// Get returns one stored record.
func (s *SQLiteSink) Get(ctx context.Context, id string) (*StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, method, status, payload FROM traffic_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, traffic.NewStorageError("sqlite", "get", err)
	}
	return rec, nil
}

// List returns records created at or after since, oldest first. A limit of
// zero or less means 100.
func (s *SQLiteSink) List(ctx context.Context, since time.Time, limit int) ([]*StoredRecord, error) {
	return s.ListAfter(ctx, since, "", limit)
}

// ListAfter returns records ordered by (created_at, id) that come after the
// cursor (at, afterID). An empty afterID makes the cursor inclusive of at, so
// ListAfter(ctx, t, "", n) is List(ctx, t, n). Feeding the last row of a page
// back as the cursor walks the table without gaps or repeats.
func (s *SQLiteSink) ListAfter(ctx context.Context, at time.Time, afterID string, limit int) ([]*StoredRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if afterID == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, created_at, method, status, payload FROM traffic_records
			 WHERE created_at >= ? ORDER BY created_at ASC, id ASC LIMIT ?`,
			at.UTC(), limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, created_at, method, status, payload FROM traffic_records
			 WHERE created_at > ? OR (created_at = ? AND id > ?)
			 ORDER BY created_at ASC, id ASC LIMIT ?`,
			at.UTC(), at.UTC(), afterID, limit)
	}
	if err != nil {
		return nil, traffic.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	records := []*StoredRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, traffic.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, traffic.NewStorageError("sqlite", "list", err)
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traffic_records`).Scan(&count); err != nil {
		return 0, traffic.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Ping implements traffic.Pinger.
func (s *SQLiteSink) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return traffic.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	if err := s.db.Close(); err != nil {
		return traffic.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite sink closed")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*StoredRecord, error) {
	var rec StoredRecord
	var method sql.NullString
	var status sql.NullInt64
	var payload string

	if err := row.Scan(&rec.ID, &rec.CreatedAt, &method, &status, &payload); err != nil {
		return nil, err
	}
	rec.Method = method.String
	rec.Status = int(status.Int64)
	rec.Payload = []byte(payload)
	return &rec, nil
}

// summarize pulls the indexed columns out of a dump. Unknown shapes yield
// zero values; the payload itself is always stored verbatim.
func summarize(payload []byte) (string, int) {
	var head struct {
		Method string `json:"method"`
		Status int    `json:"status"`
	}
	_ = json.Unmarshal(payload, &head)
	return head.Method, head.Status
}
