// Package app wires the voice listener, the conversation interpreter and the
// session reducer into one tracker that drives a hands-free counting session.
package app

import (
	"context"
	"log/slog"
	"sync"

	"eliloop/internal/convo"
	"eliloop/internal/domain/session"
	"eliloop/internal/voice"
)

// Tracker owns the session state. Transcripts flow in (from the listener or
// directly via Hear), the interpreter turns them into results, and the
// reducer folds the resulting actions back into the state.
type Tracker struct {
	interpreter *convo.Interpreter
	listener    *voice.Listener
	logger      *slog.Logger

	// hearMu serializes whole commands: snapshot, interpret, fold.
	hearMu sync.Mutex
	// stateMu guards state for snapshots concurrent with a command.
	stateMu sync.Mutex
	state   session.State
}

// NewTracker creates a tracker with a fresh session.
func NewTracker(interpreter *convo.Interpreter, listener *voice.Listener, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		interpreter: interpreter,
		listener:    listener,
		logger:      logger,
		state:       session.Initial(),
	}
}

// SpeechSupported reports whether the recognition engine is usable on this
// host.
func (t *Tracker) SpeechSupported() bool {
	return t.listener.Supported()
}

// Snapshot returns a copy of the current session state.
func (t *Tracker) Snapshot() session.State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

// Hear runs one transcript through the conversation. When the result ends
// the session, listening stops as well.
func (t *Tracker) Hear(ctx context.Context, transcript string) (convo.Result, error) {
	t.hearMu.Lock()
	defer t.hearMu.Unlock()

	result, err := t.interpreter.Interpret(ctx, transcript, t.Snapshot())
	if err != nil {
		return convo.Result{}, err
	}

	t.apply(result.Actions...)

	if result.Ended {
		t.stopListening()
	}

	return result, nil
}

// StartListening begins continuous recognition. Heard transcripts are fed
// through Hear on the listener's goroutine.
func (t *Tracker) StartListening() {
	t.apply(session.SetListening(true))
	t.listener.Start(
		func(transcript string) {
			if _, err := t.Hear(context.Background(), transcript); err != nil {
				t.logger.Error("handling transcript", "error", err)
			}
		},
		func() {
			t.apply(session.SetListening(false))
		},
	)
}

// StopListening stops continuous recognition. The flag drops immediately;
// the underlying engine session winds down in the background.
func (t *Tracker) StopListening() {
	t.stopListening()
}

func (t *Tracker) stopListening() {
	t.listener.Stop()
	t.apply(session.SetListening(false))
}

func (t *Tracker) apply(actions ...session.Action) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	for _, action := range actions {
		t.state = session.Reduce(t.state, action)
	}
}
