package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/config"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// Store wraps the database connection pool. It is created once at startup,
// injected into the packages that need it, and closed on shutdown.
type Store struct {
	db     *sql.DB
	dbType string
}

// Init opens the database connection, verifies it, and runs migrations.
func Init(cfg *config.Config) (*Store, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "postgres":
		db, err = initPostgreSQL(cfg)
	case "sqlite", "":
		db, err = initSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	if err := RunMigrations(db, cfg.Database.Type); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	log.Printf("Database initialized (type=%s)", cfg.Database.Type)
	return &Store{db: db, dbType: cfg.Database.Type}, nil
}

// initPostgreSQL initializes a PostgreSQL connection
func initPostgreSQL(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %v", err)
	}

	if cfg.Database.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConns)
	}
	if cfg.Database.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdle)
	}
	if cfg.Database.ConnMaxLifetime != "" && cfg.Database.ConnMaxLifetime != "0" {
		if d, err := time.ParseDuration(cfg.Database.ConnMaxLifetime); err == nil {
			db.SetConnMaxLifetime(d)
		} else {
			log.Printf("Warning: invalid connMaxLifetime %q: %v", cfg.Database.ConnMaxLifetime, err)
		}
	}

	return db, nil
}

// initSQLite initializes a SQLite connection
func initSQLite(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", cfg.Database.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %v", err)
	}

	// SQLite allows a single writer; keep the pool small
	db.SetMaxOpenConns(1)

	return db, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GenerateID returns a new opaque row identifier.
func GenerateID() string {
	return uuid.NewString()
}
