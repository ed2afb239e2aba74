package voice_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"eliloop/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu        sync.Mutex
	onResults func([]voice.Result)
	onEnd     func(error)
	stopped   bool
	endOnce   sync.Once
}

func (h *fakeHandle) Stop() error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.end(nil)
	return nil
}

func (h *fakeHandle) end(err error) {
	h.endOnce.Do(func() { h.onEnd(err) })
}

func (h *fakeHandle) emit(batch []voice.Result) {
	h.onResults(batch)
}

func (h *fakeHandle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

type fakeEngine struct {
	mu        sync.Mutex
	supported bool
	startErr  error
	sessions  []*fakeHandle
}

func (e *fakeEngine) Supported() bool { return e.supported }

func (e *fakeEngine) Start(onResults func([]voice.Result), onEnd func(error)) (voice.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return nil, e.startErr
	}
	h := &fakeHandle{onResults: onResults, onEnd: onEnd}
	e.sessions = append(e.sessions, h)
	return h, nil
}

func (e *fakeEngine) sessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *fakeEngine) session(i int) *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[i]
}

type stopRecorder struct {
	mu    sync.Mutex
	count int
}

func (s *stopRecorder) stopped() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

func (s *stopRecorder) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func shortBackoffs() voice.Option {
	return voice.WithBackoffs(5*time.Millisecond, 5*time.Millisecond)
}

func TestStartUnsupportedStopsImmediately(t *testing.T) {
	engine := &fakeEngine{supported: false}
	rec := &stopRecorder{}

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(string) {}, rec.stopped)

	assert.Equal(t, 1, rec.calls())
	assert.Zero(t, engine.sessionCount())
	assert.False(t, l.Listening())
}

func TestStartEngineFailureStopsImmediately(t *testing.T) {
	engine := &fakeEngine{supported: true, startErr: errors.New("no microphone")}
	rec := &stopRecorder{}

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(string) {}, rec.stopped)

	assert.Equal(t, 1, rec.calls())
	assert.False(t, l.Listening())
}

func TestTranscriptsFlowToCallback(t *testing.T) {
	engine := &fakeEngine{supported: true}
	var mu sync.Mutex
	var heard []string

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(text string) {
		mu.Lock()
		heard = append(heard, text)
		mu.Unlock()
	}, func() {})

	require.Equal(t, 1, engine.sessionCount())
	engine.session(0).emit([]voice.Result{
		{Alternatives: []voice.Alternative{{Transcript: "  mas uno  "}}, Final: true},
	})
	engine.session(0).emit([]voice.Result{
		{Alternatives: []voice.Alternative{{Transcript: "   "}}, Final: true},
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"mas uno"}, heard)

	l.Stop()
}

func TestSpontaneousEndRestarts(t *testing.T) {
	engine := &fakeEngine{supported: true}
	rec := &stopRecorder{}

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(string) {}, rec.stopped)
	require.Equal(t, 1, engine.sessionCount())

	engine.session(0).end(nil)

	require.Eventually(t, func() bool { return engine.sessionCount() == 2 },
		time.Second, time.Millisecond, "a new session should start after the backoff")
	assert.Zero(t, rec.calls(), "onStopped must not fire while keep-alive holds")
	assert.True(t, l.Listening())

	l.Stop()
}

func TestErrorEndAlsoRestarts(t *testing.T) {
	engine := &fakeEngine{supported: true}
	rec := &stopRecorder{}

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(string) {}, rec.stopped)

	engine.session(0).end(errors.New("network"))

	require.Eventually(t, func() bool { return engine.sessionCount() == 2 },
		time.Second, time.Millisecond)
	assert.Zero(t, rec.calls())

	l.Stop()
}

func TestStopSuppressesRestart(t *testing.T) {
	engine := &fakeEngine{supported: true}
	rec := &stopRecorder{}

	l := voice.NewListener(engine, nil, voice.WithBackoffs(20*time.Millisecond, 20*time.Millisecond))
	l.Start(func(string) {}, rec.stopped)

	// spontaneous end schedules a restart; Stop lands before the timer fires
	engine.session(0).end(nil)
	l.Stop()

	require.Eventually(t, func() bool { return rec.calls() == 1 },
		time.Second, time.Millisecond, "the fired timer must report the stop instead of restarting")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, engine.sessionCount())
	assert.Equal(t, 1, rec.calls())
}

func TestStopEndsActiveSession(t *testing.T) {
	engine := &fakeEngine{supported: true}
	rec := &stopRecorder{}

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(string) {}, rec.stopped)

	l.Stop()
	assert.True(t, engine.session(0).isStopped())
	assert.Equal(t, 1, rec.calls())

	// idempotent
	l.Stop()
	assert.Equal(t, 1, rec.calls())
}

func TestStartWhileListeningReplacesHandle(t *testing.T) {
	engine := &fakeEngine{supported: true}

	l := voice.NewListener(engine, nil, shortBackoffs())
	l.Start(func(string) {}, func() {})
	require.Equal(t, 1, engine.sessionCount())

	rec := &stopRecorder{}
	l.Start(func(string) {}, rec.stopped)

	assert.True(t, engine.session(0).isStopped(), "previous handle is replaced, not stacked")
	require.Equal(t, 2, engine.sessionCount())
	assert.Zero(t, rec.calls())

	l.Stop()
}

func TestExtractTranscript(t *testing.T) {
	cases := []struct {
		name  string
		batch []voice.Result
		want  string
	}{
		{"empty", nil, ""},
		{
			"prefers last final",
			[]voice.Result{
				{Alternatives: []voice.Alternative{{Transcript: "mas"}}, Final: true},
				{Alternatives: []voice.Alternative{{Transcript: "mas uno"}}, Final: true},
				{Alternatives: []voice.Alternative{{Transcript: "mas uno y"}}},
			},
			"mas uno",
		},
		{
			"falls back to last interim",
			[]voice.Result{
				{Alternatives: []voice.Alternative{{Transcript: "volver"}}},
				{Alternatives: []voice.Alternative{{Transcript: " volver a 4 "}}},
			},
			"volver a 4",
		},
		{
			"no alternatives",
			[]voice.Result{{Final: true}},
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, voice.ExtractTranscript(tc.batch))
		})
	}
}
