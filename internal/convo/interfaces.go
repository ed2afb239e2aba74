package convo

import (
	"context"

	"eliloop/internal/domain/project"
)

// Store defines the persistence operations the interpreter needs.
type Store interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	GetOrCreateByName(ctx context.Context, name string) (*project.Project, error)
	Update(ctx context.Context, proj *project.Project) error
	PersistPartChanges(ctx context.Context, proj *project.Project, part project.Part) error
}

// Announcer speaks feedback to the user. Fire-and-forget: there is no
// completion signal and failures are swallowed by the implementation.
type Announcer interface {
	Announce(text string)
}

// Cues plays non-spoken feedback. Both calls are best-effort and silently
// no-op when unsupported.
type Cues interface {
	PlayTone(frequencyHz, durationMs int)
	Vibrate(durationMs int)
}
