package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. Projects embed their parts and each part
// its append-only row history; this is the denormalized single-collection
// layout spread over three tables.
func (db *DB) RunMigrations() error {
	migration := `
-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    name_norm TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_name_norm ON projects(name_norm);

-- Parts table (ordered within a project by position)
CREATE TABLE IF NOT EXISTS parts (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    name TEXT NOT NULL,
    name_norm TEXT NOT NULL,
    position INTEGER NOT NULL,
    current_row INTEGER NOT NULL DEFAULT 0,
    repeat_every INTEGER,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_parts_project ON parts(project_id);

-- Append-only row history
CREATE TABLE IF NOT EXISTS row_entries (
    part_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    row_number INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (part_id, seq),
    FOREIGN KEY (part_id) REFERENCES parts(id) ON DELETE CASCADE
);
`

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
