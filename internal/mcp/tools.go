package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "ping",
			Description: "Check that the server is alive",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},

		// Voice
		{
			Name:        "hear",
			Description: "Feed one Spanish utterance through the voice conversation, exactly as if it had been spoken",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "Utterance text, e.g. 'eliloop', 'mas uno', 'volver a 12'",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "start_listening",
			Description: "Start continuous speech recognition",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "stop_listening",
			Description: "Stop continuous speech recognition",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "get_status",
			Description: "Get the current session status: listening flag, conversation phase and active project/part",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},

		// Projects
		{
			Name:        "create_project",
			Description: "Create a new knitting project",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Project display name",
					},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "list_projects",
			Description: "List all projects, most recently worked on first",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "get_project",
			Description: "Get a project with its parts and row history, by id or by name (accent and case insensitive)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Project ID",
					},
					"name": map[string]any{
						"type":        "string",
						"description": "Project name (used when id is omitted)",
					},
				},
			},
		},

		// Parts
		{
			Name:        "create_part",
			Description: "Add a part (e.g. a sleeve) to a project, optionally with a repeat-notification interval",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "string",
						"description": "Project ID",
					},
					"name": map[string]any{
						"type":        "string",
						"description": "Part display name",
					},
					"repeat_every": map[string]any{
						"type":        "integer",
						"description": "Announce a changeover every N rows (omit for none)",
					},
				},
				"required": []string{"project_id", "name"},
			},
		},
		{
			Name:        "delete_part",
			Description: "Remove a part and its row history from a project",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "string",
						"description": "Project ID",
					},
					"part_id": map[string]any{
						"type":        "string",
						"description": "Part ID",
					},
				},
				"required": []string{"project_id", "part_id"},
			},
		},
		{
			Name:        "set_repeat",
			Description: "Set or clear a part's repeat-notification interval",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "string",
						"description": "Project ID",
					},
					"part_id": map[string]any{
						"type":        "string",
						"description": "Part ID",
					},
					"every": map[string]any{
						"type":        "integer",
						"description": "Interval in rows; 0 clears the interval",
					},
				},
				"required": []string{"project_id", "part_id", "every"},
			},
		},

		// Rows
		{
			Name:        "set_row",
			Description: "Move a part's counter to an exact row, recording a history entry",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "string",
						"description": "Project ID",
					},
					"part_id": map[string]any{
						"type":        "string",
						"description": "Part ID",
					},
					"row": map[string]any{
						"type":        "integer",
						"description": "Target row number (may be behind the current row)",
					},
				},
				"required": []string{"project_id", "part_id", "row"},
			},
		},
		{
			Name:        "add_rows",
			Description: "Advance a part's counter by one or more rows, recording one history entry per row",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "string",
						"description": "Project ID",
					},
					"part_id": map[string]any{
						"type":        "string",
						"description": "Part ID",
					},
					"count": map[string]any{
						"type":        "integer",
						"description": "Rows to add (default 1)",
					},
				},
				"required": []string{"project_id", "part_id"},
			},
		},
	}
}

// registerTools adds every catalog tool to the SDK server, routing calls
// through the handler's method dispatch.
func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, def := range buildToolCatalog() {
		def := def
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: toSchema(def.InputSchema),
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			args, err := rawArguments(req.Params.Arguments)
			if err != nil {
				return nil, fmt.Errorf("decoding %s arguments: %w", def.Name, err)
			}
			result, err := handler.Handle(ctx, def.Name, args)
			if err != nil {
				return toolError(err), nil
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encoding %s result: %w", def.Name, err)
			}
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
			}, nil
		})
	}
}

func rawArguments(v any) (json.RawMessage, error) {
	switch args := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return args, nil
	default:
		return json.Marshal(args)
	}
}

func toSchema(m map[string]any) *jsonschema.Schema {
	data, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Sprintf("invalid tool schema: %v", err))
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		panic(fmt.Sprintf("invalid tool schema: %v", err))
	}
	return &schema
}

func toolError(err error) *sdkmcp.CallToolResult {
	payload := err.Error()
	if apiErr, ok := err.(*APIError); ok {
		if data, jsonErr := json.Marshal(apiErr); jsonErr == nil {
			payload = string(data)
		}
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: payload}},
	}
}
