package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration represents a database migration
type Migration struct {
	ID       int
	Filename string
	Content  string
}

// RunMigrations applies every embedded migration newer than the recorded
// version, each in its own transaction, over a plain lib/pq connection.
func RunMigrations(config *Config, logger *zap.Logger) (int, error) {
	conn, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return 0, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return 0, fmt.Errorf("failed to ping database: %w", err)
	}
	return ApplyMigrations(conn, logger)
}

// ApplyMigrations runs pending migrations on an open postgres connection and
// returns how many were applied.
func ApplyMigrations(conn *sql.DB, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := createMigrationsTable(conn); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := getCurrentVersion(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	migrations, err := LoadMigrations()
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	applied := 0
	for _, migration := range migrations {
		if migration.ID <= currentVersion {
			continue
		}
		logger.Info("Running migration", zap.Int("version", migration.ID), zap.String("file", migration.Filename))
		if err := runMigration(conn, migration); err != nil {
			return applied, fmt.Errorf("failed to run migration %d: %w", migration.ID, err)
		}
		applied++
	}
	logger.Info("Migrations up to date", zap.Int("applied", applied))
	return applied, nil
}

func createMigrationsTable(conn *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			executed_at TIMESTAMP DEFAULT NOW()
		)
	`
	_, err := conn.Exec(query)
	return err
}

func getCurrentVersion(conn *sql.DB) (int, error) {
	var version int
	err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// LoadMigrations returns the embedded migrations sorted by version. Files are
// named NNN_description.sql.
func LoadMigrations() ([]Migration, error) {
	var migrations []Migration

	files, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(file.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}

		id, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		content, err := migrationFiles.ReadFile("migrations/" + file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			ID:       id,
			Filename: file.Name(),
			Content:  string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})

	return migrations, nil
}

func runMigration(conn *sql.DB, migration Migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.Content); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, filename) VALUES ($1, $2)",
		migration.ID, migration.Filename,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
