package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eliloop/internal/domain/project"
	"eliloop/internal/repository"
	"eliloop/internal/text"
)

// ProjectRepository implements project.Repository for SQLite.
// Projects are loaded and saved as whole aggregates: a project row plus its
// parts plus each part's row history.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project aggregate
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO projects (id, name, name_norm, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		proj.ID,
		proj.Name,
		text.Normalize(proj.Name),
		proj.CreatedAt,
		proj.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if err := r.saveParts(ctx, tx, proj); err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves a project aggregate by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	return r.getWhere(ctx, "id = ?", id)
}

// GetByNormName retrieves a project aggregate by its normalized name
func (r *ProjectRepository) GetByNormName(ctx context.Context, normName string) (*project.Project, error) {
	return r.getWhere(ctx, "name_norm = ?", normName)
}

func (r *ProjectRepository) getWhere(ctx context.Context, where string, arg any) (*project.Project, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM projects
		WHERE ` + where

	var proj project.Project
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&proj.ID,
		&proj.Name,
		&proj.CreatedAt,
		&proj.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	parts, err := r.loadParts(ctx, proj.ID)
	if err != nil {
		return nil, err
	}
	proj.Parts = parts

	return &proj, nil
}

// List returns summaries of all projects, most recently updated first
func (r *ProjectRepository) List(ctx context.Context) ([]project.ProjectSummary, error) {
	query := `
		SELECT p.id, p.name, COUNT(pt.id), p.updated_at
		FROM projects p
		LEFT JOIN parts pt ON pt.project_id = p.id
		GROUP BY p.id
		ORDER BY p.updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var summaries []project.ProjectSummary
	for rows.Next() {
		var s project.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.PartCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Update saves the whole aggregate: the project row is updated, parts are
// upserted in order, parts missing from the aggregate are removed, and new
// history entries are appended.
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE projects
		SET name = ?, name_norm = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		proj.Name,
		text.Normalize(proj.Name),
		proj.UpdatedAt,
		proj.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if err := r.deleteMissingParts(ctx, tx, proj); err != nil {
		return err
	}
	if err := r.saveParts(ctx, tx, proj); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePart removes a part (and its history, via cascade) from a project
func (r *ProjectRepository) DeletePart(ctx context.Context, projectID, partID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM parts WHERE id = ? AND project_id = ?", partID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete part: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE projects SET updated_at = ? WHERE id = ?", time.Now().UTC(), projectID)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}

	return tx.Commit()
}

func (r *ProjectRepository) saveParts(ctx context.Context, tx *sql.Tx, proj *project.Project) error {
	partQuery := `
		INSERT INTO parts (id, project_id, name, name_norm, position, current_row, repeat_every, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_norm = excluded.name_norm,
			position = excluded.position,
			current_row = excluded.current_row,
			repeat_every = excluded.repeat_every
	`

	for i := range proj.Parts {
		part := &proj.Parts[i]
		var repeatEvery sql.NullInt64
		if part.RepeatEvery != nil {
			repeatEvery = sql.NullInt64{Int64: int64(*part.RepeatEvery), Valid: true}
		}

		_, err := tx.ExecContext(ctx, partQuery,
			part.ID,
			proj.ID,
			part.Name,
			text.Normalize(part.Name),
			i,
			part.CurrentRow,
			repeatEvery,
			part.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save part: %w", err)
		}

		if err := r.appendHistory(ctx, tx, part); err != nil {
			return err
		}
	}

	return nil
}

// appendHistory inserts the entries the stored history does not have yet.
// History is append-only, so entries past the stored count are the new ones.
func (r *ProjectRepository) appendHistory(ctx context.Context, tx *sql.Tx, part *project.Part) error {
	var stored int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM row_entries WHERE part_id = ?", part.ID).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to count row entries: %w", err)
	}

	for seq := stored; seq < len(part.History); seq++ {
		entry := part.History[seq]
		_, err := tx.ExecContext(ctx,
			"INSERT INTO row_entries (part_id, seq, row_number, created_at) VALUES (?, ?, ?, ?)",
			part.ID, seq, entry.RowNumber, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to append row entry: %w", err)
		}
	}

	return nil
}

func (r *ProjectRepository) deleteMissingParts(ctx context.Context, tx *sql.Tx, proj *project.Project) error {
	if len(proj.Parts) == 0 {
		_, err := tx.ExecContext(ctx, "DELETE FROM parts WHERE project_id = ?", proj.ID)
		if err != nil {
			return fmt.Errorf("failed to delete parts: %w", err)
		}
		return nil
	}

	placeholders := make([]string, len(proj.Parts))
	args := make([]any, 0, len(proj.Parts)+1)
	args = append(args, proj.ID)
	for i, part := range proj.Parts {
		placeholders[i] = "?"
		args = append(args, part.ID)
	}

	query := fmt.Sprintf(
		"DELETE FROM parts WHERE project_id = ? AND id NOT IN (%s)",
		strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete missing parts: %w", err)
	}

	return nil
}

func (r *ProjectRepository) loadParts(ctx context.Context, projectID string) ([]project.Part, error) {
	query := `
		SELECT id, name, current_row, repeat_every, created_at
		FROM parts
		WHERE project_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parts: %w", err)
	}
	defer rows.Close()

	var parts []project.Part
	for rows.Next() {
		var part project.Part
		var repeatEvery sql.NullInt64
		if err := rows.Scan(&part.ID, &part.Name, &part.CurrentRow, &repeatEvery, &part.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		if repeatEvery.Valid {
			n := int(repeatEvery.Int64)
			part.RepeatEvery = &n
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range parts {
		history, err := r.loadHistory(ctx, parts[i].ID)
		if err != nil {
			return nil, err
		}
		parts[i].History = history
	}

	return parts, nil
}

func (r *ProjectRepository) loadHistory(ctx context.Context, partID string) ([]project.RowEntry, error) {
	query := `
		SELECT row_number, created_at
		FROM row_entries
		WHERE part_id = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to load row history: %w", err)
	}
	defer rows.Close()

	var history []project.RowEntry
	for rows.Next() {
		var entry project.RowEntry
		if err := rows.Scan(&entry.RowNumber, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan row entry: %w", err)
		}
		history = append(history, entry)
	}

	return history, rows.Err()
}
