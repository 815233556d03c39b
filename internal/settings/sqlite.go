package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

const (
	keyProjectDirectory = "project_directory"
	keyMistralAPIKey    = "mistral_api_key"
)

// SQLiteStore keeps settings as rows of a key/value table.
type SQLiteStore struct {
	db     *sql.DB
	once   sync.Once
	closed atomic.Bool
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	if err := initSchema(db); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.db.Close()
	})
	return err
}

// Load returns the stored settings. Keys never saved come back empty.
func (s *SQLiteStore) Load(ctx context.Context) (Settings, error) {
	if s.closed.Load() {
		return Settings{}, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	var out Settings
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
		switch k {
		case keyProjectDirectory:
			out.ProjectDirectory = v
		case keyMistralAPIKey:
			out.MistralAPIKey = v
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

// Save replaces every stored key in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st Settings) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, kv := range [][2]string{
		{keyProjectDirectory, st.ProjectDirectory},
		{keyMistralAPIKey, st.MistralAPIKey},
	} {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO settings(key, value, updated_at) VALUES(?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			kv[0], kv[1], now,
		); err != nil {
			return fmt.Errorf("save %s: %w", kv[0], err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
