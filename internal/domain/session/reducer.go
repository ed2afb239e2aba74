// Package session holds the transient per-launch session state and its pure
// reducer. Nothing here is persisted.
package session

// Phase is the dialogue state governing how the next transcript is
// interpreted.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseAwaitingProject Phase = "awaitingProject"
	PhaseAwaitingPart    Phase = "awaitingPart"
	PhaseAwaitingRepeat  Phase = "awaitingRepeat"
	PhaseTracking        Phase = "tracking"
)

// State is the transient session state. Active ids are weak references:
// lookup keys against the store, never owned aggregates.
type State struct {
	ActiveProjectID string `json:"active_project_id,omitempty"`
	ActivePartID    string `json:"active_part_id,omitempty"`
	Listening       bool   `json:"listening"`
	Phase           Phase  `json:"phase"`
}

// ActionType identifies a session state transition.
type ActionType string

const (
	ActionSetProject   ActionType = "set_project"
	ActionSetPart      ActionType = "set_part"
	ActionSetListening ActionType = "set_listening"
	ActionSetPhase     ActionType = "set_phase"
	ActionReset        ActionType = "reset"
)

// Action is one session state transition request.
type Action struct {
	Type      ActionType
	ID        string
	Listening bool
	Phase     Phase
}

// Initial returns the fresh per-launch session state.
func Initial() State {
	return State{Phase: PhaseIdle}
}

// Reduce folds one action into the state. It is pure: no side effects, no
// validation beyond accepting the payload as given. Reset restores everything
// to initial values except the listening flag, which it preserves.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ActionSetProject:
		state.ActiveProjectID = action.ID
	case ActionSetPart:
		state.ActivePartID = action.ID
	case ActionSetListening:
		state.Listening = action.Listening
	case ActionSetPhase:
		state.Phase = action.Phase
	case ActionReset:
		listening := state.Listening
		state = Initial()
		state.Listening = listening
	}
	return state
}

// SetProject builds a set-active-project action.
func SetProject(id string) Action { return Action{Type: ActionSetProject, ID: id} }

// SetPart builds a set-active-part action.
func SetPart(id string) Action { return Action{Type: ActionSetPart, ID: id} }

// SetListening builds a set-listening action.
func SetListening(on bool) Action { return Action{Type: ActionSetListening, Listening: on} }

// SetPhase builds a set-conversation-phase action.
func SetPhase(phase Phase) Action { return Action{Type: ActionSetPhase, Phase: phase} }

// Reset builds a reset action.
func Reset() Action { return Action{Type: ActionReset} }
