package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/example/musclecards/migrations"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Supported DB_TYPE values
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config selects the database backend
type Config struct {
	Type string // sqlite or postgres
	DSN  string // file path for sqlite, connection string for postgres
}

// goose keeps its dialect and filesystem in package globals
var migrateMu sync.Mutex

// Connect establishes a connection to the database and brings the schema up to date
func Connect(cfg Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch strings.ToLower(cfg.Type) {
	case TypePostgres:
		db, err = sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	case TypeSQLite, "sqlite3", "":
		db, err = connectSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func connectSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		path = filepath.Join("data", "musclecards.db")
	}
	// Create data directory if it doesn't exist
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
	db.SetMaxIdleConns(1)
	return db, nil
}

// runMigrations applies the embedded goose migrations for the connected dialect
func runMigrations(db *sqlx.DB) error {
	dialect, dir := "sqlite3", "sqlite"
	if isPostgres(db) {
		dialect, dir = "postgres", "postgres"
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db.DB, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func isPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "postgres"
}
