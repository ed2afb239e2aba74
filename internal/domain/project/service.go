package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eliloop/internal/repository"
	"eliloop/internal/text"
	"github.com/google/uuid"
)

// Service handles project and part operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create creates and persists a new project with the given display name.
func (s *Service) Create(ctx context.Context, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now()
	proj := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Parts:     []Part{},
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// GetByName looks up a project by accent/case-insensitive name.
func (s *Service) GetByName(ctx context.Context, name string) (*Project, error) {
	proj, err := s.repo.GetByNormName(ctx, text.Normalize(name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project by name: %w", err)
	}
	return proj, nil
}

// GetOrCreateByName returns the project matching the spoken name, creating it
// when no project matches under normalization.
func (s *Service) GetOrCreateByName(ctx context.Context, name string) (*Project, error) {
	proj, err := s.GetByName(ctx, name)
	if err == nil {
		return proj, nil
	}
	if !errors.Is(err, ErrProjectNotFound) {
		return nil, err
	}
	return s.Create(ctx, name)
}

// List returns project summaries.
func (s *Service) List(ctx context.Context) ([]ProjectSummary, error) {
	return s.repo.List(ctx)
}

// Update upserts the whole project aggregate, refreshing its update timestamp.
func (s *Service) Update(ctx context.Context, proj *Project) error {
	proj.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("updating project: %w", err)
	}
	return nil
}

// NewPart constructs a part value with row 0, no repeat interval and empty
// history. It does not persist anything.
func NewPart(name string) Part {
	return Part{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		History:   []RowEntry{},
		CreatedAt: time.Now(),
	}
}

// AppendRowEntry returns a copy of the part moved to rowNumber with a new
// history entry. The append is unconditional: moving to the same row still
// records an entry.
func AppendRowEntry(part Part, rowNumber int) Part {
	entry := RowEntry{RowNumber: rowNumber, Timestamp: time.Now()}
	history := make([]RowEntry, len(part.History), len(part.History)+1)
	copy(history, part.History)
	part.History = append(history, entry)
	part.CurrentRow = rowNumber
	return part
}

// PersistPartChanges replaces the matching part by id within the project and
// upserts the project aggregate.
func (s *Service) PersistPartChanges(ctx context.Context, proj *Project, part Part) error {
	replaced := false
	for i := range proj.Parts {
		if proj.Parts[i].ID == part.ID {
			proj.Parts[i] = part
			replaced = true
			break
		}
	}
	if !replaced {
		proj.Parts = append(proj.Parts, part)
	}
	return s.Update(ctx, proj)
}

// DeletePart removes a part from the project and returns the updated project.
func (s *Service) DeletePart(ctx context.Context, projectID, partID string) (*Project, error) {
	if err := s.repo.DeletePart(ctx, projectID, partID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPartNotFound
		}
		return nil, fmt.Errorf("deleting part: %w", err)
	}
	return s.Get(ctx, projectID)
}

// FindPartByName returns the part whose name matches under normalization.
func FindPartByName(proj *Project, name string) *Part {
	norm := text.Normalize(name)
	for i := range proj.Parts {
		if text.Normalize(proj.Parts[i].Name) == norm {
			return &proj.Parts[i]
		}
	}
	return nil
}
