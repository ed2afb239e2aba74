package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"eliloop/internal/convo"
	"eliloop/internal/domain/project"
	"eliloop/internal/domain/session"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, name string) (*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	GetByName(ctx context.Context, name string) (*project.Project, error)
	List(ctx context.Context) ([]project.ProjectSummary, error)
	PersistPartChanges(ctx context.Context, proj *project.Project, part project.Part) error
	DeletePart(ctx context.Context, projectID, partID string) (*project.Project, error)
}

// TrackerService defines the live tracking operations needed by MCP.
type TrackerService interface {
	Hear(ctx context.Context, transcript string) (convo.Result, error)
	StartListening()
	StopListening()
	Snapshot() session.State
	SpeechSupported() bool
}

// Handler dispatches MCP commands.
type Handler struct {
	projects ProjectService
	tracker  TrackerService
}

// NewHandler creates a new MCP handler.
func NewHandler(projects ProjectService, tracker TrackerService) *Handler {
	return &Handler{
		projects: projects,
		tracker:  tracker,
	}
}

// Handle dispatches MCP requests to domain services.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "ping":
		return map[string]string{"status": "pong"}, nil
	case "hear":
		var req HearParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		result, err := h.tracker.Hear(ctx, req.Text)
		if err != nil {
			return nil, mapError(err)
		}
		return HearResponse{
			Project: result.Project,
			Part:    result.Part,
			Ended:   result.Ended,
			Status:  h.status(),
		}, nil
	case "create_project":
		var req CreateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, err := h.projects.Create(ctx, req.Name)
		if err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "list_projects":
		summaries, err := h.projects.List(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		if summaries == nil {
			summaries = []project.ProjectSummary{}
		}
		return summaries, nil
	case "get_project":
		var req GetProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, err := h.getProject(ctx, req)
		if err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "create_part":
		var req CreatePartParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Name == "" {
			return nil, mapError(project.ErrInvalidInput)
		}
		proj, err := h.projects.Get(ctx, req.ProjectID)
		if err != nil {
			return nil, mapError(err)
		}
		part := project.NewPart(req.Name)
		if req.RepeatEvery > 0 {
			every := req.RepeatEvery
			part.RepeatEvery = &every
		}
		if err := h.projects.PersistPartChanges(ctx, proj, part); err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "delete_part":
		var req DeletePartParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, err := h.projects.DeletePart(ctx, req.ProjectID, req.PartID)
		if err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "set_repeat":
		var req SetRepeatParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, part, err := h.getPart(ctx, req.ProjectID, req.PartID)
		if err != nil {
			return nil, mapError(err)
		}
		if req.Every > 0 {
			every := req.Every
			part.RepeatEvery = &every
		} else {
			part.RepeatEvery = nil
		}
		if err := h.projects.PersistPartChanges(ctx, proj, part); err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "set_row":
		var req SetRowParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Row < 0 {
			return nil, mapError(project.ErrInvalidInput)
		}
		proj, part, err := h.getPart(ctx, req.ProjectID, req.PartID)
		if err != nil {
			return nil, mapError(err)
		}
		updated := project.AppendRowEntry(part, req.Row)
		if err := h.projects.PersistPartChanges(ctx, proj, updated); err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "add_rows":
		var req AddRowsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		count := req.Count
		if count == 0 {
			count = 1
		}
		if count < 1 {
			return nil, mapError(project.ErrInvalidInput)
		}
		proj, part, err := h.getPart(ctx, req.ProjectID, req.PartID)
		if err != nil {
			return nil, mapError(err)
		}
		updated := part
		for n := 0; n < count; n++ {
			updated = project.AppendRowEntry(updated, updated.CurrentRow+1)
		}
		if err := h.projects.PersistPartChanges(ctx, proj, updated); err != nil {
			return nil, mapError(err)
		}
		return proj, nil
	case "start_listening":
		h.tracker.StartListening()
		return h.status(), nil
	case "stop_listening":
		h.tracker.StopListening()
		return h.status(), nil
	case "get_status":
		return h.status(), nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, out)
}

// getProject resolves a project by id or, failing that, by name.
func (h *Handler) getProject(ctx context.Context, req GetProjectParams) (*project.Project, error) {
	if req.ID != "" {
		return h.projects.Get(ctx, req.ID)
	}
	if req.Name != "" {
		return h.projects.GetByName(ctx, req.Name)
	}
	return nil, project.ErrInvalidInput
}

func (h *Handler) getPart(ctx context.Context, projectID, partID string) (*project.Project, project.Part, error) {
	proj, err := h.projects.Get(ctx, projectID)
	if err != nil {
		return nil, project.Part{}, err
	}
	part := proj.FindPartByID(partID)
	if part == nil {
		return nil, project.Part{}, project.ErrPartNotFound
	}
	return proj, *part, nil
}

func (h *Handler) status() StatusResponse {
	state := h.tracker.Snapshot()
	return StatusResponse{
		Listening:       state.Listening,
		SpeechSupported: h.tracker.SpeechSupported(),
		Phase:           string(state.Phase),
		ActiveProjectID: state.ActiveProjectID,
		ActivePartID:    state.ActivePartID,
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
