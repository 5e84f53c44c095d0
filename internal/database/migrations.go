package database

import (
	"database/sql"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

// getPostgresMigrations returns PostgreSQL migrations
func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				company VARCHAR(255) NOT NULL DEFAULT '',
				password VARCHAR(255),
				email_verified_at TIMESTAMP WITH TIME ZONE,
				verification_token VARCHAR(255),
				verification_token_expires_at TIMESTAMP WITH TIME ZONE,
				verification_code VARCHAR(6),
				verification_code_expires_at TIMESTAMP WITH TIME ZONE,
				reset_token VARCHAR(255),
				reset_token_expires_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create oauth_grants table",
			SQL: `CREATE TABLE IF NOT EXISTS oauth_grants (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				provider VARCHAR(50) NOT NULL,
				access_token TEXT,
				refresh_token TEXT,
				expires_at BIGINT,
				scope TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, provider)
			)`,
		},
		{
			Version:     3,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token VARCHAR(255) UNIQUE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL
			)`,
		},
		{
			Version:     4,
			Description: "Create time_blocks table",
			SQL: `CREATE TABLE IF NOT EXISTS time_blocks (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
				ends_at TIMESTAMP WITH TIME ZONE NOT NULL,
				calendar_event_id VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_users_verification_token ON users(verification_token);
				CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token);
				CREATE INDEX IF NOT EXISTS idx_oauth_grants_user_id ON oauth_grants(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
				CREATE INDEX IF NOT EXISTS idx_time_blocks_user_id ON time_blocks(user_id);
				CREATE INDEX IF NOT EXISTS idx_time_blocks_starts_at ON time_blocks(starts_at);`,
		},
	}
}

// getSQLiteMigrations returns SQLite migrations
func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				company TEXT NOT NULL DEFAULT '',
				password TEXT,
				email_verified_at DATETIME,
				verification_token TEXT,
				verification_token_expires_at DATETIME,
				verification_code TEXT,
				verification_code_expires_at DATETIME,
				reset_token TEXT,
				reset_token_expires_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     2,
			Description: "Create oauth_grants table",
			SQL: `CREATE TABLE IF NOT EXISTS oauth_grants (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				provider TEXT NOT NULL,
				access_token TEXT,
				refresh_token TEXT,
				expires_at INTEGER,
				scope TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE (user_id, provider)
			)`,
		},
		{
			Version:     3,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token TEXT UNIQUE NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     4,
			Description: "Create time_blocks table",
			SQL: `CREATE TABLE IF NOT EXISTS time_blocks (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				starts_at DATETIME NOT NULL,
				ends_at DATETIME NOT NULL,
				calendar_event_id TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     5,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_users_verification_token ON users(verification_token);
				CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token);
				CREATE INDEX IF NOT EXISTS idx_oauth_grants_user_id ON oauth_grants(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
				CREATE INDEX IF NOT EXISTS idx_time_blocks_user_id ON time_blocks(user_id);
				CREATE INDEX IF NOT EXISTS idx_time_blocks_starts_at ON time_blocks(starts_at);`,
		},
	}
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}

	_, err := db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// recordMigration records that a migration has been applied
func recordMigration(db *sql.DB, dbType string, version int) error {
	var query string
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	} else {
		query = "INSERT INTO schema_migrations (version) VALUES (?)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %v", err)
	}

	for _, migration := range GetMigrations(dbType) {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Description)

		// Split SQL by semicolon and execute each statement
		statements := strings.Split(migration.SQL, ";")
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %v", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %v", migration.Version, err)
		}
	}

	return nil
}
