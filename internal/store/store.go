// Package store provides the SQLite storage layer for imported co-occurrence
// networks and saved thematic map runs.
//
// Everything lives in a single SQLite database file:
// - networks: term lists and co-occurrence matrices, one row per import
// - map_runs: parameters and full results of computed maps
// - meta: schema flags and bookkeeping
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/szz00712/bibliometrix/internal/thematic"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.thematicmap/thematicmap.db"

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// Network is a stored co-occurrence network.
type Network struct {
	ID         int64
	Field      string
	Name       string
	Terms      []string
	Matrix     [][]float64
	ImportedAt time.Time
}

// NetworkInfo is the listing view of a Network, without the matrix.
type NetworkInfo struct {
	ID         int64     `json:"id"`
	Field      string    `json:"field"`
	Name       string    `json:"name"`
	Terms      int       `json:"terms"`
	ImportedAt time.Time `json:"imported_at"`
}

// Run is a saved thematic map computation.
type Run struct {
	ID        string           `json:"id"`
	NetworkID int64            `json:"network_id"`
	Params    thematic.Params  `json:"params"`
	Result    *thematic.Result `json:"result,omitempty"`
	NClust    int              `json:"nclust"`
	CreatedAt time.Time        `json:"created_at"`
}

// StoreStats holds observability statistics about the store.
type StoreStats struct {
	NetworkCount int64 `json:"networks"`
	RunCount     int64 `json:"runs"`
	DBSizeBytes  int64 `json:"db_size_bytes"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the storage interface. Getters return (nil, nil) when the
// requested row does not exist.
type Store interface {
	// Networks
	SaveNetwork(ctx context.Context, n *Network) (int64, error)
	GetNetwork(ctx context.Context, id int64) (*Network, error)
	GetNetworkByField(ctx context.Context, field string) (*Network, error)
	ListNetworks(ctx context.Context) ([]*NetworkInfo, error)

	// Runs
	SaveRun(ctx context.Context, r *Run) (string, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	cfg.DBPath = ExpandPath(cfg.DBPath)

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.DBPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Stats returns current database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM networks", &stats.NetworkCount},
		{"SELECT COUNT(*) FROM map_runs", &stats.RunCount},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("querying stats (%s): %w", q.query, err)
		}
	}

	// page counts are only meaningful for file-backed databases
	if s.dbPath != ":memory:" {
		var pageCount, pageSize int64
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
			return nil, fmt.Errorf("querying stats (PRAGMA page_count): %w", err)
		}
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
			return nil, fmt.Errorf("querying stats (PRAGMA page_size): %w", err)
		}
		stats.DBSizeBytes = pageCount * pageSize
	}
	return stats, nil
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
