package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `eliloop is a hands-free row counter for knitters, driven by Spanish voice commands.

Core concepts:
- Project: a named piece of work (a sweater, a scarf). Looked up by name, accent and case insensitive.
- Part: a component of a project (a sleeve, the back) with its own row counter and append-only row history.
- Session: one conversation. It holds the active project/part, the listening flag and the dialogue phase.

Two ways to drive it:
1) Voice path: start_listening, then speak. Or simulate speech with hear(text) for testing and scripting.
2) Direct path: create_project / create_part / set_row / add_rows / set_repeat for programmatic edits.

Voice command reference (all matched after lowercasing, accent stripping and whitespace collapsing):
- "eliloop" or "el hilo": wake word; asks which project.
- "eliloop <nombre>": wake word plus project in one utterance.
- "mas uno" / "k": current row + 1.
- "mas dos": current row + 2.
- "k<n>" (e.g. "k12"): jump to row n.
- "volver a <n>": go back to row n.
- "avisa cada <n>" / "quita el aviso": set or clear the changeover interval.
- "por donde voy": announce the current row.
- "lo dejo": save, announce, end the session and stop listening.

Notes:
- Every row change appends a history entry, even when the row number is unchanged.
- get_status reports the conversation phase; hear responses include it too.
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "eliloop://docs/voice-commands",
		Name:        "docs_voice_commands",
		Title:       "Voice command reference",
		Description: "Every Spanish phrase the conversation understands, by dialogue phase.",
		Content: `# Voice commands

All matching happens on normalized text: lowercased, accents stripped, whitespace collapsed.

## Idle (not in a session)

- ` + "`eliloop`" + ` or ` + "`el hilo`" + ` — wake word. Replies "Ok. ¿Qué proyecto?".
- ` + "`eliloop <nombre>`" + ` — wake word with the project name in one breath.
- Anything else is ignored.

## Choosing a project

Any utterance is taken as the project name. Unknown names create a new project.
The reply is "Ok. ¿Qué parte?".

## Choosing a part

Any utterance is taken as the part name.

- Existing part: replies "Ok. Vas por vuelta N" and starts tracking.
- New part: replies "Ok. ¿Aviso cada cuántas vueltas?" and waits for an interval.

## Setting the interval (new parts only)

- A number (` + "`4`" + `) sets the changeover interval.
- ` + "`no`" + ` / ` + "`nada`" + ` / ` + "`ninguno`" + ` skips it.

## Tracking

- ` + "`mas uno`" + ` / ` + "`k`" + ` — one more row.
- ` + "`mas dos`" + ` — two more rows.
- ` + "`k12`" + ` — jump to row 12.
- ` + "`volver a 8`" + ` — go back to row 8.
- ` + "`avisa cada 6`" + ` — announce a changeover every 6 rows.
- ` + "`quita el aviso`" + ` — clear the interval.
- ` + "`por donde voy`" + ` — announce the current row.
- ` + "`lo dejo`" + ` / ` + "`me voy`" + ` — save and end the session.

When a row lands on a multiple of the interval, the confirmation is
"¡Cambio! Vuelta N" with a tone and a vibration instead of the plain "Ok. N".
`,
	},
	{
		URI:         "eliloop://docs/workflow",
		Name:        "docs_workflow",
		Title:       "Typical workflow",
		Description: "How a knitting session flows from wake word to save.",
		Content: `# Typical workflow

1. ` + "`start_listening`" + ` (or keep using ` + "`hear`" + ` to simulate speech).
2. Say ` + "`eliloop jersey azul`" + `.
3. Say the part name, e.g. ` + "`manga`" + `. New parts ask for a changeover interval.
4. Knit. Say ` + "`mas uno`" + ` at the end of each row.
5. Ask ` + "`por donde voy`" + ` whenever you lose count.
6. Say ` + "`lo dejo`" + ` when you put the needles down. Progress is saved and
   listening stops.

Every mutation is persisted before it is confirmed out loud, so a crash never
loses a confirmed row.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
