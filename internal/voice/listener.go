package voice

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	defaultEndBackoff   = 300 * time.Millisecond
	defaultErrorBackoff = 500 * time.Millisecond
)

// Listener turns the engine's short-lived sessions into one continuous
// listening stream. While keep-alive holds, a terminated underlying session
// is transparently replaced after a short backoff; the caller observes a
// single stream of transcripts.
type Listener struct {
	engine     Engine
	logger     *slog.Logger
	endBackoff time.Duration
	errBackoff time.Duration

	mu        sync.Mutex
	keepAlive bool
	gen       int
	handle    Handle
	onText    func(string)
	onStopped func()
}

// Option configures a Listener.
type Option func(*Listener)

// WithBackoffs overrides the restart backoffs after a clean session end and
// after a session error.
func WithBackoffs(clean, onError time.Duration) Option {
	return func(l *Listener) {
		l.endBackoff = clean
		l.errBackoff = onError
	}
}

// NewListener creates a listener over the given engine.
func NewListener(engine Engine, logger *slog.Logger, opts ...Option) *Listener {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Listener{
		engine:     engine,
		logger:     logger,
		endBackoff: defaultEndBackoff,
		errBackoff: defaultErrorBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins listening. onText receives each non-empty transcript;
// onStopped fires exactly once when listening ends, immediately when the
// capability is unavailable or the engine fails to start. Starting while
// already listening replaces the previous underlying handle.
func (l *Listener) Start(onText func(string), onStopped func()) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	prev := l.handle
	l.handle = nil

	if !l.engine.Supported() {
		l.keepAlive = false
		l.mu.Unlock()
		if prev != nil {
			_ = prev.Stop()
		}
		onStopped()
		return
	}

	l.keepAlive = true
	l.onText = onText
	l.onStopped = onStopped
	l.mu.Unlock()

	if prev != nil {
		_ = prev.Stop()
	}
	l.startSession(gen)
}

// Stop signals intent to stop. It suppresses auto-restart and best-effort
// stops the underlying engine handle, swallowing errors. Safe to call at any
// point, idempotent.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.keepAlive = false
	h := l.handle
	l.handle = nil
	l.mu.Unlock()

	if h != nil {
		_ = h.Stop()
	}
}

// Supported reports whether the underlying engine can capture speech at all.
func (l *Listener) Supported() bool {
	return l.engine.Supported()
}

// Listening reports whether keep-alive currently holds.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keepAlive
}

func (l *Listener) startSession(gen int) {
	h, err := l.engine.Start(
		func(batch []Result) { l.emit(gen, batch) },
		func(err error) { l.ended(gen, err) },
	)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		if h != nil {
			_ = h.Stop()
		}
		return
	}
	if err != nil {
		l.logger.Warn("engine start failed", "error", err)
		l.keepAlive = false
		stopped := l.onStopped
		l.mu.Unlock()
		if stopped != nil {
			stopped()
		}
		return
	}
	if !l.keepAlive {
		l.mu.Unlock()
		_ = h.Stop()
		return
	}
	l.handle = h
	l.mu.Unlock()
}

// ended handles underlying session termination: restart after backoff while
// keep-alive holds, otherwise report the logical stop.
func (l *Listener) ended(gen int, err error) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.handle = nil

	if !l.keepAlive || !l.engine.Supported() {
		l.keepAlive = false
		stopped := l.onStopped
		l.mu.Unlock()
		if stopped != nil {
			stopped()
		}
		return
	}

	backoff := l.endBackoff
	if err != nil {
		l.logger.Debug("engine session error, restarting", "error", err)
		backoff = l.errBackoff
	}
	l.mu.Unlock()

	time.AfterFunc(backoff, func() { l.restart(gen) })
}

// restart runs when a backoff timer fires. A timer that finds keep-alive
// cleared must not create a new session.
func (l *Listener) restart(gen int) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	if !l.keepAlive || !l.engine.Supported() {
		l.keepAlive = false
		stopped := l.onStopped
		l.mu.Unlock()
		if stopped != nil {
			stopped()
		}
		return
	}
	l.mu.Unlock()
	l.startSession(gen)
}

func (l *Listener) emit(gen int, batch []Result) {
	l.mu.Lock()
	if gen != l.gen || !l.keepAlive {
		l.mu.Unlock()
		return
	}
	onText := l.onText
	l.mu.Unlock()

	if transcript := ExtractTranscript(batch); transcript != "" && onText != nil {
		onText(transcript)
	}
}

// ExtractTranscript picks the most recent finalized result's top hypothesis;
// when none is finalized it falls back to the last (possibly interim)
// result's top hypothesis, trimmed.
func ExtractTranscript(batch []Result) string {
	for i := len(batch) - 1; i >= 0; i-- {
		if batch[i].Final && len(batch[i].Alternatives) > 0 {
			return strings.TrimSpace(batch[i].Alternatives[0].Transcript)
		}
	}
	if len(batch) == 0 {
		return ""
	}
	last := batch[len(batch)-1]
	if len(last.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(last.Alternatives[0].Transcript)
}
