package project_test

import (
	"context"
	"testing"

	"eliloop/internal/domain/project"
	"eliloop/internal/repository"
	"eliloop/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProjectService_CreateValidation(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ProjectRepository{}
	svc := project.NewService(repo, nil)
	_, err := svc.Create(ctx, "   ")
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_CreateAssignsID(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ProjectRepository{}
	repo.On("Create", ctx, mock.Anything).Return(nil)

	svc := project.NewService(repo, nil)
	proj, err := svc.Create(ctx, " bufanda ")
	require.NoError(t, err)
	require.NotEmpty(t, proj.ID)
	require.Equal(t, "bufanda", proj.Name)
	require.Empty(t, proj.Parts)
	require.False(t, proj.CreatedAt.IsZero())
}

func TestProjectService_GetOrCreateByNameExisting(t *testing.T) {
	ctx := context.Background()
	existing := &project.Project{ID: "p1", Name: "Bufanda"}

	repo := &mocks.ProjectRepository{}
	repo.On("GetByNormName", ctx, "bufanda").Return(existing, nil)

	svc := project.NewService(repo, nil)
	proj, err := svc.GetOrCreateByName(ctx, "  BUFANDÁ ")
	require.NoError(t, err)
	require.Equal(t, "p1", proj.ID)
	repo.AssertNotCalled(t, "Create", ctx, mock.Anything)
}

func TestProjectService_GetOrCreateByNameMissing(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ProjectRepository{}
	repo.On("GetByNormName", ctx, "jersey azul").Return((*project.Project)(nil), repository.ErrNotFound)
	repo.On("Create", ctx, mock.Anything).Return(nil)

	svc := project.NewService(repo, nil)
	proj, err := svc.GetOrCreateByName(ctx, "jersey azul")
	require.NoError(t, err)
	require.Equal(t, "jersey azul", proj.Name)
	repo.AssertExpectations(t)
}

func TestAppendRowEntry(t *testing.T) {
	part := project.NewPart("manga")
	require.Equal(t, 0, part.CurrentRow)

	part = project.AppendRowEntry(part, 1)
	part = project.AppendRowEntry(part, 2)
	require.Equal(t, 2, part.CurrentRow)
	require.Len(t, part.History, 2)
	require.Equal(t, 2, part.History[1].RowNumber)

	// moving to the same row still appends
	part = project.AppendRowEntry(part, 2)
	require.Equal(t, 2, part.CurrentRow)
	require.Len(t, part.History, 3)
	require.Equal(t, 2, part.History[2].RowNumber)

	// jumping backward is allowed
	part = project.AppendRowEntry(part, 0)
	require.Equal(t, 0, part.CurrentRow)
	require.Len(t, part.History, 4)
}

func TestPersistPartChangesReplacesByID(t *testing.T) {
	ctx := context.Background()

	proj := &project.Project{
		ID:   "p1",
		Name: "bufanda",
		Parts: []project.Part{
			{ID: "a", Name: "cuerpo", CurrentRow: 3},
			{ID: "b", Name: "manga", CurrentRow: 7},
		},
	}

	repo := &mocks.ProjectRepository{}
	repo.On("Update", ctx, proj).Return(nil)

	svc := project.NewService(repo, nil)
	updated := proj.Parts[1]
	updated = project.AppendRowEntry(updated, 8)

	require.NoError(t, svc.PersistPartChanges(ctx, proj, updated))
	require.Equal(t, 8, proj.Parts[1].CurrentRow)
	require.Equal(t, 3, proj.Parts[0].CurrentRow)
	require.False(t, proj.UpdatedAt.IsZero())
}

func TestFindPartByName(t *testing.T) {
	proj := &project.Project{Parts: []project.Part{
		{ID: "a", Name: "Cuerpo"},
		{ID: "b", Name: "Manga Izquierda"},
	}}

	found := project.FindPartByName(proj, "manga  izquierda")
	require.NotNil(t, found)
	require.Equal(t, "b", found.ID)

	require.Nil(t, project.FindPartByName(proj, "capucha"))
}
