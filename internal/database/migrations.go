package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
)

// Migration represents a schema change
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations is the ordered schema history of the snapshot database
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_trips",
		SQL: `
			CREATE TABLE IF NOT EXISTS trips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				duration_sec REAL,
				duration_mins REAL,
				start_station_id TEXT NOT NULL,
				start_station_name TEXT NOT NULL,
				start_lat REAL,
				start_lon REAL,
				end_station_id TEXT,
				end_station_name TEXT,
				end_lat REAL,
				end_lon REAL,
				bike_id TEXT,
				user_type TEXT NOT NULL,
				member_gender TEXT NOT NULL,
				member_birth_year INTEGER,
				age INTEGER,
				age_group TEXT,
				bike_share_for_all INTEGER NOT NULL DEFAULT 0,
				distance_km REAL
			);
			CREATE INDEX IF NOT EXISTS idx_trips_start_station ON trips(start_station_name);
		`,
	},
	{
		Version: 2,
		Name:    "create_snapshots",
		SQL: `
			CREATE TABLE IF NOT EXISTS snapshots (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				rows INTEGER NOT NULL,
				has_duration INTEGER NOT NULL,
				source_path TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
}

// MigrationManager manages database migrations
type MigrationManager struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrationManager creates a new migration manager over Migrations
func NewMigrationManager(db *sql.DB) *MigrationManager {
	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	return &MigrationManager{db: db, migrations: sorted}
}

// InitMigrationsTable creates the migrations tracking table
func (m *MigrationManager) InitMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// AppliedVersions returns the set of applied migration versions
func (m *MigrationManager) AppliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// Apply applies a single migration and records it
func (m *MigrationManager) Apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", migration.Version, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	log.Printf("[Database] Applied migration %d: %s", migration.Version, migration.Name)
	return nil
}

// RunMigrations applies every pending migration in version order
func (m *MigrationManager) RunMigrations() error {
	if err := m.InitMigrationsTable(); err != nil {
		return err
	}

	applied, err := m.AppliedVersions()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.Apply(migration); err != nil {
			return err
		}
	}
	return nil
}
