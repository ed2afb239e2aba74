// Package convo implements the conversation state machine: it interprets
// normalized speech transcripts against the current dialogue phase and the
// active project/part, producing persistence calls, spoken and haptic
// feedback, and session actions for the reducer to fold.
package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"eliloop/internal/domain/project"
	"eliloop/internal/domain/session"
	"eliloop/internal/text"
)

const (
	changeoverToneHz    = 880
	changeoverToneMs    = 200
	changeoverVibrateMs = 50
)

// Result is the outcome of interpreting one transcript. Project and Part are
// the aggregates after any mutation (nil when none is active). Actions are
// session transitions for the caller's reducer. Ended signals that tracking
// finished and the caller should stop listening and refresh project lists.
type Result struct {
	Project *project.Project
	Part    *project.Part
	Actions []session.Action
	Ended   bool
}

// Interpreter maps transcripts to state transitions. Interpret is guarded by
// a mutex: command handling is single-flight and an in-flight call always
// runs to completion.
type Interpreter struct {
	store     Store
	announcer Announcer
	cues      Cues
	logger    *slog.Logger

	mu sync.Mutex
}

// NewInterpreter creates the conversation interpreter.
func NewInterpreter(store Store, announcer Announcer, cues Cues, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Interpreter{
		store:     store,
		announcer: announcer,
		cues:      cues,
		logger:    logger,
	}
}

// Interpret processes one transcript against the session state. Persistence
// completes before any confirmation is announced; a persistence error aborts
// the command leaving state unchanged.
func (i *Interpreter) Interpret(ctx context.Context, raw string, state session.State) (Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	normalized := text.Normalize(raw)

	proj, part, err := i.loadActive(ctx, state)
	if err != nil {
		return Result{}, err
	}
	echo := Result{Project: proj, Part: part}

	if normalized == "" {
		return echo, nil
	}

	i.logger.Debug("interpreting", "phase", state.Phase, "text", normalized)

	switch state.Phase {
	case session.PhaseIdle:
		return i.interpretIdle(ctx, normalized, echo)
	case session.PhaseAwaitingProject:
		return i.selectProject(ctx, normalized)
	case session.PhaseAwaitingPart:
		if proj == nil {
			return echo, nil
		}
		return i.selectPart(ctx, normalized, proj)
	case session.PhaseAwaitingRepeat:
		if proj == nil || part == nil {
			return echo, nil
		}
		return i.interpretRepeat(ctx, normalized, proj, *part, echo)
	case session.PhaseTracking:
		if proj == nil || part == nil {
			return echo, nil
		}
		return i.interpretTracking(ctx, normalized, proj, *part, echo)
	}
	return echo, nil
}

// loadActive resolves the active ids against the store. The session holds
// weak references only; aggregates are never cached across a persistence
// boundary.
func (i *Interpreter) loadActive(ctx context.Context, state session.State) (*project.Project, *project.Part, error) {
	if state.ActiveProjectID == "" {
		return nil, nil, nil
	}
	proj, err := i.store.Get(ctx, state.ActiveProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading active project: %w", err)
	}
	if state.ActivePartID == "" {
		return proj, nil, nil
	}
	return proj, proj.FindPartByID(state.ActivePartID), nil
}

func (i *Interpreter) interpretIdle(ctx context.Context, normalized string, echo Result) (Result, error) {
	if wakeWordAlone(normalized) != nil {
		i.announcer.Announce("Ok. ¿Qué proyecto?")
		echo.Actions = []session.Action{session.SetPhase(session.PhaseAwaitingProject)}
		return echo, nil
	}
	if name, ok := matchWakeWithName(normalized); ok {
		return i.selectProject(ctx, name)
	}
	return echo, nil
}

func (i *Interpreter) selectProject(ctx context.Context, name string) (Result, error) {
	proj, err := i.store.GetOrCreateByName(ctx, name)
	if err != nil {
		return Result{}, err
	}
	i.announcer.Announce("Ok. ¿Qué parte?")
	return Result{
		Project: proj,
		Actions: []session.Action{
			session.SetProject(proj.ID),
			session.SetPhase(session.PhaseAwaitingPart),
		},
	}, nil
}

// selectPart activates an existing part or creates a new one. An existing
// part goes straight to tracking; a freshly created part first asks for a
// repeat-notification interval.
func (i *Interpreter) selectPart(ctx context.Context, name string, proj *project.Project) (Result, error) {
	if existing := project.FindPartByName(proj, name); existing != nil {
		i.announcer.Announce(fmt.Sprintf("Ok. Vas por vuelta %d", existing.CurrentRow))
		return Result{
			Project: proj,
			Part:    existing,
			Actions: []session.Action{
				session.SetPart(existing.ID),
				session.SetPhase(session.PhaseTracking),
			},
		}, nil
	}

	part := project.NewPart(name)
	proj.Parts = append(proj.Parts, part)
	if err := i.store.Update(ctx, proj); err != nil {
		return Result{}, err
	}
	i.announcer.Announce("Ok. ¿Aviso cada cuántas vueltas?")
	return Result{
		Project: proj,
		Part:    proj.FindPartByID(part.ID),
		Actions: []session.Action{
			session.SetPart(part.ID),
			session.SetPhase(session.PhaseAwaitingRepeat),
		},
	}, nil
}

func (i *Interpreter) interpretRepeat(ctx context.Context, normalized string, proj *project.Project, part project.Part, echo Result) (Result, error) {
	if m := repeatNumber(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return echo, nil
		}
		part.RepeatEvery = &n
		if err := i.store.PersistPartChanges(ctx, proj, part); err != nil {
			return Result{}, err
		}
		i.announcer.Announce(fmt.Sprintf("Ok. Aviso cada %d. Vas por vuelta %d", n, part.CurrentRow))
		return Result{
			Project: proj,
			Part:    proj.FindPartByID(part.ID),
			Actions: []session.Action{session.SetPhase(session.PhaseTracking)},
		}, nil
	}

	if repeatDecline(normalized) != nil {
		i.announcer.Announce(fmt.Sprintf("Ok. Vas por vuelta %d", part.CurrentRow))
		echo.Actions = []session.Action{session.SetPhase(session.PhaseTracking)}
		return echo, nil
	}

	return echo, nil
}

func (i *Interpreter) interpretTracking(ctx context.Context, normalized string, proj *project.Project, part project.Part, echo Result) (Result, error) {
	// Status and exit commands are checked before row mutations so that the
	// prefix forms can't be shadowed.
	if whereAmI(normalized) != nil {
		i.announcer.Announce(fmt.Sprintf("Vuelta %d", part.CurrentRow))
		return echo, nil
	}

	if leaveTracking(normalized) != nil {
		if err := i.store.PersistPartChanges(ctx, proj, part); err != nil {
			return Result{}, err
		}
		i.announcer.Announce("Ok. Guardado.")
		return Result{
			Actions: []session.Action{session.Reset()},
			Ended:   true,
		}, nil
	}

	if m := notifyEvery(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return echo, nil
		}
		part.RepeatEvery = &n
		if err := i.store.PersistPartChanges(ctx, proj, part); err != nil {
			return Result{}, err
		}
		i.announcer.Announce(fmt.Sprintf("Ok. Aviso cada %d", n))
		return Result{Project: proj, Part: proj.FindPartByID(part.ID)}, nil
	}

	if removeNotify(normalized) != nil {
		part.RepeatEvery = nil
		if err := i.store.PersistPartChanges(ctx, proj, part); err != nil {
			return Result{}, err
		}
		i.announcer.Announce("Ok. Sin aviso")
		return Result{Project: proj, Part: proj.FindPartByID(part.ID)}, nil
	}

	if newRow, ok := rowCommand(normalized, part.CurrentRow); ok {
		return i.applyRow(ctx, proj, part, newRow)
	}

	return echo, nil
}

// rowCommand resolves a row-mutation command to the target row number. Rows
// may jump backward or skip forward arbitrarily; no monotonicity is enforced.
func rowCommand(normalized string, current int) (int, bool) {
	if plusOne(normalized) != nil {
		return current + 1, true
	}
	if plusTwo(normalized) != nil {
		return current + 2, true
	}
	if m := setRowK(normalized); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if m := goBackTo(normalized); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// applyRow appends a history entry unconditionally (even when the row is
// unchanged), persists, then announces. When a repeat interval is set and the
// new row is a positive multiple of it, a tone and vibration accompany the
// changeover announcement.
func (i *Interpreter) applyRow(ctx context.Context, proj *project.Project, part project.Part, newRow int) (Result, error) {
	updated := project.AppendRowEntry(part, newRow)
	if err := i.store.PersistPartChanges(ctx, proj, updated); err != nil {
		return Result{}, err
	}

	if r := updated.RepeatEvery; r != nil && newRow > 0 && newRow%*r == 0 {
		i.cues.PlayTone(changeoverToneHz, changeoverToneMs)
		i.cues.Vibrate(changeoverVibrateMs)
		i.announcer.Announce(fmt.Sprintf("¡Cambio! Vuelta %d", newRow))
	} else {
		i.announcer.Announce(fmt.Sprintf("Ok. %d", newRow))
	}

	return Result{Project: proj, Part: proj.FindPartByID(updated.ID)}, nil
}
