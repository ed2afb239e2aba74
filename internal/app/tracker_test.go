package app

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"eliloop/internal/convo"
	"eliloop/internal/domain/project"
	"eliloop/internal/domain/session"
	"eliloop/internal/text"
	"eliloop/internal/voice"
)

type memStore struct {
	mu       sync.Mutex
	projects map[string]*project.Project
}

func newMemStore() *memStore {
	return &memStore{projects: make(map[string]*project.Project)}
}

func (s *memStore) Get(_ context.Context, id string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proj, ok := s.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return proj, nil
}

func (s *memStore) GetOrCreateByName(_ context.Context, name string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, proj := range s.projects {
		if text.Equal(proj.Name, name) {
			return proj, nil
		}
	}
	proj := &project.Project{ID: uuid.NewString(), Name: name}
	s.projects[proj.ID] = proj
	return proj, nil
}

func (s *memStore) Update(_ context.Context, proj *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[proj.ID] = proj
	return nil
}

func (s *memStore) PersistPartChanges(_ context.Context, proj *project.Project, part project.Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range proj.Parts {
		if proj.Parts[i].ID == part.ID {
			proj.Parts[i] = part
		}
	}
	s.projects[proj.ID] = proj
	return nil
}

type silentFeedback struct{}

func (silentFeedback) Announce(string)   {}
func (silentFeedback) PlayTone(int, int) {}
func (silentFeedback) Vibrate(int)       {}

// pushEngine lets the test feed transcripts into the listener by hand.
type pushEngine struct {
	mu        sync.Mutex
	supported bool
	onResults func([]voice.Result)
	onEnd     func(error)
}

func (e *pushEngine) Supported() bool { return e.supported }

func (e *pushEngine) Start(onResults func([]voice.Result), onEnd func(error)) (voice.Handle, error) {
	e.mu.Lock()
	e.onResults = onResults
	e.onEnd = onEnd
	e.mu.Unlock()
	return &pushHandle{engine: e}, nil
}

func (e *pushEngine) push(transcript string) {
	e.mu.Lock()
	onResults := e.onResults
	e.mu.Unlock()
	onResults([]voice.Result{{
		Alternatives: []voice.Alternative{{Transcript: transcript}},
		Final:        true,
	}})
}

type pushHandle struct {
	engine *pushEngine
	once   sync.Once
}

func (h *pushHandle) Stop() error {
	h.once.Do(func() {
		h.engine.mu.Lock()
		onEnd := h.engine.onEnd
		h.engine.mu.Unlock()
		if onEnd != nil {
			onEnd(nil)
		}
	})
	return nil
}

func newTestTracker(t *testing.T) (*Tracker, *pushEngine, *memStore) {
	t.Helper()
	store := newMemStore()
	engine := &pushEngine{supported: true}
	interp := convo.NewInterpreter(store, silentFeedback{}, silentFeedback{}, nil)
	listener := voice.NewListener(engine, nil)
	return NewTracker(interp, listener, nil), engine, store
}

func TestTrackerStartListening(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	require.False(t, tracker.Snapshot().Listening)
	tracker.StartListening()
	require.True(t, tracker.Snapshot().Listening)

	tracker.StopListening()
	require.False(t, tracker.Snapshot().Listening)
}

func TestTrackerUnsupportedEngine(t *testing.T) {
	store := newMemStore()
	engine := &pushEngine{supported: false}
	interp := convo.NewInterpreter(store, silentFeedback{}, silentFeedback{}, nil)
	tracker := NewTracker(interp, voice.NewListener(engine, nil), nil)

	tracker.StartListening()
	require.False(t, tracker.Snapshot().Listening)
}

func TestTrackerFullConversation(t *testing.T) {
	tracker, engine, store := newTestTracker(t)
	tracker.StartListening()

	engine.push("eliloop")
	require.Equal(t, session.PhaseAwaitingProject, tracker.Snapshot().Phase)

	engine.push("jersey azul")
	state := tracker.Snapshot()
	require.Equal(t, session.PhaseAwaitingPart, state.Phase)
	require.NotEmpty(t, state.ActiveProjectID)

	engine.push("manga")
	state = tracker.Snapshot()
	require.Equal(t, session.PhaseAwaitingRepeat, state.Phase)
	require.NotEmpty(t, state.ActivePartID)

	engine.push("4")
	require.Equal(t, session.PhaseTracking, tracker.Snapshot().Phase)

	engine.push("mas uno")
	engine.push("mas uno")

	proj, err := store.Get(context.Background(), tracker.Snapshot().ActiveProjectID)
	require.NoError(t, err)
	require.Len(t, proj.Parts, 1)
	require.Equal(t, 2, proj.Parts[0].CurrentRow)
	require.Len(t, proj.Parts[0].History, 2)

	engine.push("lo dejo")
	state = tracker.Snapshot()
	require.Equal(t, session.PhaseIdle, state.Phase)
	require.Empty(t, state.ActiveProjectID)
	require.Empty(t, state.ActivePartID)
	require.False(t, state.Listening)
}

func TestTrackerHearDirect(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	result, err := tracker.Hear(context.Background(), "eli loop bufanda")
	require.NoError(t, err)
	require.NotNil(t, result.Project)
	require.Equal(t, "bufanda", result.Project.Name)
	require.Equal(t, session.PhaseAwaitingPart, tracker.Snapshot().Phase)
}

func TestTrackerIgnoresChatter(t *testing.T) {
	tracker, engine, _ := newTestTracker(t)
	tracker.StartListening()

	engine.push("que bonito dia hace hoy")

	state := tracker.Snapshot()
	require.Equal(t, session.PhaseIdle, state.Phase)
	require.Empty(t, state.ActiveProjectID)
	require.True(t, state.Listening)
}
