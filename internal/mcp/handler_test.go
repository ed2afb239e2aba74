package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"eliloop/internal/convo"
	"eliloop/internal/domain/project"
	"eliloop/internal/domain/session"
)

type projectStub struct {
	createFn    func(context.Context, string) (*project.Project, error)
	getFn       func(context.Context, string) (*project.Project, error)
	getByNameFn func(context.Context, string) (*project.Project, error)
	listFn      func(context.Context) ([]project.ProjectSummary, error)
	persistFn   func(context.Context, *project.Project, project.Part) error
	deletePtFn  func(context.Context, string, string) (*project.Project, error)
}

func (p projectStub) Create(ctx context.Context, name string) (*project.Project, error) {
	return p.createFn(ctx, name)
}
func (p projectStub) Get(ctx context.Context, id string) (*project.Project, error) {
	return p.getFn(ctx, id)
}
func (p projectStub) GetByName(ctx context.Context, name string) (*project.Project, error) {
	return p.getByNameFn(ctx, name)
}
func (p projectStub) List(ctx context.Context) ([]project.ProjectSummary, error) {
	return p.listFn(ctx)
}
func (p projectStub) PersistPartChanges(ctx context.Context, proj *project.Project, part project.Part) error {
	return p.persistFn(ctx, proj, part)
}
func (p projectStub) DeletePart(ctx context.Context, projectID, partID string) (*project.Project, error) {
	return p.deletePtFn(ctx, projectID, partID)
}

type trackerStub struct {
	hearFn    func(context.Context, string) (convo.Result, error)
	state     session.State
	supported bool
	started   bool
	stopped   bool
}

func (t *trackerStub) Hear(ctx context.Context, transcript string) (convo.Result, error) {
	return t.hearFn(ctx, transcript)
}
func (t *trackerStub) StartListening() {
	t.started = true
	t.state.Listening = true
}
func (t *trackerStub) StopListening() {
	t.stopped = true
	t.state.Listening = false
}
func (t *trackerStub) Snapshot() session.State { return t.state }
func (t *trackerStub) SpeechSupported() bool   { return t.supported }

func rawParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleHear(t *testing.T) {
	proj := &project.Project{ID: "p1", Name: "Jersey"}
	tracker := &trackerStub{
		hearFn: func(_ context.Context, transcript string) (convo.Result, error) {
			require.Equal(t, "mas uno", transcript)
			return convo.Result{Project: proj}, nil
		},
		state: session.State{Phase: session.PhaseTracking, ActiveProjectID: "p1", Listening: true},
	}
	h := NewHandler(projectStub{}, tracker)

	result, err := h.Handle(context.Background(), "hear", rawParams(t, HearParams{Text: "mas uno"}))
	require.NoError(t, err)

	resp, ok := result.(HearResponse)
	require.True(t, ok)
	require.Equal(t, "p1", resp.Project.ID)
	require.True(t, resp.Status.Listening)
	require.Equal(t, string(session.PhaseTracking), resp.Status.Phase)
}

func TestHandleCreateProjectInvalid(t *testing.T) {
	h := NewHandler(projectStub{
		createFn: func(context.Context, string) (*project.Project, error) {
			return nil, project.ErrInvalidInput
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "create_project", rawParams(t, CreateProjectParams{}))
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)
}

func TestHandleGetProject(t *testing.T) {
	stub := projectStub{
		getFn: func(_ context.Context, id string) (*project.Project, error) {
			require.Equal(t, "p1", id)
			return &project.Project{ID: "p1"}, nil
		},
		getByNameFn: func(_ context.Context, name string) (*project.Project, error) {
			require.Equal(t, "Jersey", name)
			return &project.Project{ID: "p2"}, nil
		},
	}
	h := NewHandler(stub, &trackerStub{})

	result, err := h.Handle(context.Background(), "get_project", rawParams(t, GetProjectParams{ID: "p1"}))
	require.NoError(t, err)
	require.Equal(t, "p1", result.(*project.Project).ID)

	result, err = h.Handle(context.Background(), "get_project", rawParams(t, GetProjectParams{Name: "Jersey"}))
	require.NoError(t, err)
	require.Equal(t, "p2", result.(*project.Project).ID)

	_, err = h.Handle(context.Background(), "get_project", rawParams(t, GetProjectParams{}))
	require.Error(t, err)
	require.Equal(t, "INVALID_INPUT", err.(*APIError).Code)
}

func TestHandleGetProjectNotFound(t *testing.T) {
	h := NewHandler(projectStub{
		getFn: func(context.Context, string) (*project.Project, error) {
			return nil, project.ErrProjectNotFound
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "get_project", rawParams(t, GetProjectParams{ID: "ghost"}))
	require.Error(t, err)
	require.Equal(t, "PROJECT_NOT_FOUND", err.(*APIError).Code)
}

func TestHandleCreatePart(t *testing.T) {
	proj := &project.Project{ID: "p1", Name: "Jersey"}
	var persisted project.Part
	h := NewHandler(projectStub{
		getFn: func(context.Context, string) (*project.Project, error) { return proj, nil },
		persistFn: func(_ context.Context, _ *project.Project, part project.Part) error {
			persisted = part
			return nil
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "create_part", rawParams(t, CreatePartParams{
		ProjectID:   "p1",
		Name:        "Manga",
		RepeatEvery: 6,
	}))
	require.NoError(t, err)
	require.Equal(t, "Manga", persisted.Name)
	require.NotEmpty(t, persisted.ID)
	require.NotNil(t, persisted.RepeatEvery)
	require.Equal(t, 6, *persisted.RepeatEvery)
	require.Equal(t, 0, persisted.CurrentRow)
}

func TestHandleSetRepeatClears(t *testing.T) {
	every := 4
	proj := &project.Project{
		ID:    "p1",
		Parts: []project.Part{{ID: "pt1", Name: "Manga", RepeatEvery: &every}},
	}
	var persisted project.Part
	h := NewHandler(projectStub{
		getFn: func(context.Context, string) (*project.Project, error) { return proj, nil },
		persistFn: func(_ context.Context, _ *project.Project, part project.Part) error {
			persisted = part
			return nil
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "set_repeat", rawParams(t, SetRepeatParams{
		ProjectID: "p1",
		PartID:    "pt1",
		Every:     0,
	}))
	require.NoError(t, err)
	require.Nil(t, persisted.RepeatEvery)
}

func TestHandleSetRow(t *testing.T) {
	proj := &project.Project{
		ID:    "p1",
		Parts: []project.Part{{ID: "pt1", Name: "Manga", CurrentRow: 10}},
	}
	var persisted project.Part
	h := NewHandler(projectStub{
		getFn: func(context.Context, string) (*project.Project, error) { return proj, nil },
		persistFn: func(_ context.Context, _ *project.Project, part project.Part) error {
			persisted = part
			return nil
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "set_row", rawParams(t, SetRowParams{
		ProjectID: "p1",
		PartID:    "pt1",
		Row:       7,
	}))
	require.NoError(t, err)
	require.Equal(t, 7, persisted.CurrentRow)
	require.Len(t, persisted.History, 1)
	require.Equal(t, 7, persisted.History[0].RowNumber)
}

func TestHandleAddRowsDefaultCount(t *testing.T) {
	proj := &project.Project{
		ID:    "p1",
		Parts: []project.Part{{ID: "pt1", Name: "Manga", CurrentRow: 3}},
	}
	var persisted project.Part
	h := NewHandler(projectStub{
		getFn: func(context.Context, string) (*project.Project, error) { return proj, nil },
		persistFn: func(_ context.Context, _ *project.Project, part project.Part) error {
			persisted = part
			return nil
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "add_rows", rawParams(t, AddRowsParams{
		ProjectID: "p1",
		PartID:    "pt1",
	}))
	require.NoError(t, err)
	require.Equal(t, 4, persisted.CurrentRow)
	require.Len(t, persisted.History, 1)

	_, err = h.Handle(context.Background(), "add_rows", rawParams(t, AddRowsParams{
		ProjectID: "p1",
		PartID:    "pt1",
		Count:     3,
	}))
	require.NoError(t, err)
	require.Equal(t, 6, persisted.CurrentRow)
	require.Len(t, persisted.History, 3)
}

func TestHandleAddRowsUnknownPart(t *testing.T) {
	h := NewHandler(projectStub{
		getFn: func(context.Context, string) (*project.Project, error) {
			return &project.Project{ID: "p1"}, nil
		},
	}, &trackerStub{})

	_, err := h.Handle(context.Background(), "add_rows", rawParams(t, AddRowsParams{
		ProjectID: "p1",
		PartID:    "ghost",
	}))
	require.Error(t, err)
	require.Equal(t, "PART_NOT_FOUND", err.(*APIError).Code)
}

func TestHandleListening(t *testing.T) {
	tracker := &trackerStub{supported: true}
	h := NewHandler(projectStub{}, tracker)

	result, err := h.Handle(context.Background(), "start_listening", nil)
	require.NoError(t, err)
	require.True(t, tracker.started)
	require.True(t, result.(StatusResponse).Listening)
	require.True(t, result.(StatusResponse).SpeechSupported)

	result, err = h.Handle(context.Background(), "stop_listening", nil)
	require.NoError(t, err)
	require.True(t, tracker.stopped)
	require.False(t, result.(StatusResponse).Listening)
}

func TestHandlePing(t *testing.T) {
	h := NewHandler(projectStub{}, &trackerStub{})

	result, err := h.Handle(context.Background(), "ping", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"status": "pong"}, result)
}

func TestToolCatalog(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range buildToolCatalog() {
		require.NotEmpty(t, def.Name)
		require.NotEmpty(t, def.Description)
		require.False(t, seen[def.Name], "duplicate tool %s", def.Name)
		seen[def.Name] = true

		require.NotPanics(t, func() { toSchema(def.InputSchema) })
	}
	require.True(t, seen["hear"])
	require.True(t, seen["ping"])
}

func TestHandleUnknownMethod(t *testing.T) {
	h := NewHandler(projectStub{}, &trackerStub{})

	_, err := h.Handle(context.Background(), "frobnicate", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown method")
}

func TestHandleListProjectsEmpty(t *testing.T) {
	h := NewHandler(projectStub{
		listFn: func(context.Context) ([]project.ProjectSummary, error) { return nil, nil },
	}, &trackerStub{})

	result, err := h.Handle(context.Background(), "list_projects", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result.([]project.ProjectSummary))
}
