package sqlitestore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blocknetdx/xlited/internal/core/ports"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

const (
	StoreType    = "sqlite"
	driverName   = "sqlite"
	sqliteDbFile = "kvstore.sqlite.db"
)

//go:embed migration/*.sql
var migrations embed.FS

const (
	selectItem = `SELECT value FROM kv WHERE key = ?`
	upsertItem = `
INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	deleteAll = `DELETE FROM kv`
)

type store struct {
	db *sql.DB
}

func NewStore(baseDir string) (ports.KVStore, error) {
	db, err := openDb(filepath.Join(baseDir, sqliteDbFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %s", err)
	}

	if err := migrateDb(db); err != nil {
		// nolint
		db.Close()
		return nil, err
	}

	return &store{db}, nil
}

func (s *store) GetType() string {
	return StoreType
}

func (s *store) GetItem(key string) (string, bool, error) {
	var value string
	if err := s.db.QueryRow(selectItem, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *store) SetItem(key, value string) error {
	_, err := s.db.Exec(upsertItem, key, value)
	return err
}

func (s *store) Clear() error {
	_, err := s.db.Exec(deleteAll)
	return err
}

func (s *store) Close() error {
	return s.db.Close()
}

func openDb(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	db.SetMaxOpenConns(1) // prevent concurrent writes

	return db, nil
}

func migrateDb(db *sql.DB) error {
	source, err := iofs.New(migrations, "migration")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate up: %w", err)
	}
	return nil
}
