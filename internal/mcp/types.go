package mcp

import (
	"eliloop/internal/domain/project"
)

type HearParams struct {
	Text string `json:"text"`
}

type CreateProjectParams struct {
	Name string `json:"name"`
}

type GetProjectParams struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type CreatePartParams struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	RepeatEvery int    `json:"repeat_every,omitempty"`
}

type DeletePartParams struct {
	ProjectID string `json:"project_id"`
	PartID    string `json:"part_id"`
}

type SetRepeatParams struct {
	ProjectID string `json:"project_id"`
	PartID    string `json:"part_id"`
	Every     int    `json:"every"`
}

type SetRowParams struct {
	ProjectID string `json:"project_id"`
	PartID    string `json:"part_id"`
	Row       int    `json:"row"`
}

type AddRowsParams struct {
	ProjectID string `json:"project_id"`
	PartID    string `json:"part_id"`
	Count     int    `json:"count,omitempty"`
}

// StatusResponse mirrors the session state for clients.
type StatusResponse struct {
	Listening       bool   `json:"listening"`
	SpeechSupported bool   `json:"speech_supported"`
	Phase           string `json:"phase"`
	ActiveProjectID string `json:"active_project_id,omitempty"`
	ActivePartID    string `json:"active_part_id,omitempty"`
}

// HearResponse reports the outcome of feeding one utterance through the
// conversation.
type HearResponse struct {
	Project *project.Project `json:"project,omitempty"`
	Part    *project.Part    `json:"part,omitempty"`
	Ended   bool             `json:"ended"`
	Status  StatusResponse   `json:"status"`
}

// ToolDefinition describes a callable tool
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}
