package project

import "context"

// Repository provides persistence for projects. Projects are stored as whole
// aggregates: parts and their row history travel with the project record.
type Repository interface {
	Create(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	GetByNormName(ctx context.Context, normName string) (*Project, error)
	List(ctx context.Context) ([]ProjectSummary, error)
	Update(ctx context.Context, proj *Project) error
	DeletePart(ctx context.Context, projectID, partID string) error
}
