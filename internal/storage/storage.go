// Package storage persists the store's projection as a single named record
// in a local SQLite database.
package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SchemaVersion is the current shape of the persisted projection. Version 1
// stored checked items as a plain id list; version 2 stores the map of
// checker identity.
const SchemaVersion = 2

// DefaultRecord is the record name used by the client.
const DefaultRecord = "larder"

// Store reads and writes the projection record. It satisfies store.Persister.
type Store struct {
	db   *sql.DB
	name string
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, name: DefaultRecord}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts the projection record at the current schema version.
func (s *Store) Save(p store.Projection) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO client_state (name, version, data, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, data = excluded.data, updated_at = excluded.updated_at`,
		s.name, SchemaVersion, string(data))
	if err != nil {
		return fmt.Errorf("save projection: %w", err)
	}
	return nil
}

// Load reads the projection record, migrating older schema versions in
// memory. The second return is false when no record exists yet.
func (s *Store) Load() (store.Projection, bool, error) {
	var version int
	var data string
	err := s.db.QueryRow(`SELECT version, data FROM client_state WHERE name = ?`, s.name).Scan(&version, &data)
	if err == sql.ErrNoRows {
		return store.Projection{}, false, nil
	}
	if err != nil {
		return store.Projection{}, false, fmt.Errorf("load projection: %w", err)
	}

	switch version {
	case 1:
		p, err := migrateV1([]byte(data))
		if err != nil {
			return store.Projection{}, false, err
		}
		return p, true, nil
	case SchemaVersion:
		var p store.Projection
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return store.Projection{}, false, fmt.Errorf("unmarshal projection: %w", err)
		}
		return p, true, nil
	default:
		return store.Projection{}, false, fmt.Errorf("unsupported schema version %d", version)
	}
}

// projectionV1 is the historical shape: checked items as a bare id list.
type projectionV1 struct {
	Plan         *model.Plan        `json:"plan"`
	CheckedItems []string           `json:"checked_items"`
	Recipes      []model.Recipe     `json:"recipes"`
	CustomItems  []model.CustomItem `json:"custom_items"`
	Outbox       json.RawMessage    `json:"outbox"`
}

// migrateV1 converts a version-1 record. Historical checked items carry no
// checker, so they migrate as anonymous.
func migrateV1(data []byte) (store.Projection, error) {
	var old projectionV1
	if err := json.Unmarshal(data, &old); err != nil {
		return store.Projection{}, fmt.Errorf("unmarshal v1 projection: %w", err)
	}

	p := store.Projection{
		Plan:        old.Plan,
		Recipes:     old.Recipes,
		CustomItems: old.CustomItems,
	}
	p.CheckedItems = make(model.CheckedItems, len(old.CheckedItems))
	for _, id := range old.CheckedItems {
		p.CheckedItems[id] = ""
	}
	if len(old.Outbox) > 0 {
		if err := json.Unmarshal(old.Outbox, &p.Outbox); err != nil {
			return store.Projection{}, fmt.Errorf("unmarshal v1 outbox: %w", err)
		}
	}
	return p, nil
}
