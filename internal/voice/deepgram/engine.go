// Package deepgram implements the speech engine over Deepgram's live
// transcription websocket, fed by a local microphone capture.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"eliloop/internal/voice"
	"eliloop/internal/voice/capture"
	"github.com/gorilla/websocket"
)

const audioChunkSize = 4096

// Config controls the Deepgram websocket connection.
type Config struct {
	APIKey     string
	APIBaseURL string
	Model      string
	Language   string
	SampleRate int
	Channels   int
}

// Engine implements voice.Engine. Each Start opens one websocket session and
// one capture session; both are torn down together.
type Engine struct {
	cfg    Config
	source capture.Source
	logger *slog.Logger
}

// NewEngine creates a Deepgram-backed speech engine.
func NewEngine(cfg Config, source capture.Source, logger *slog.Logger) *Engine {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cfg: cfg, source: source, logger: logger}
}

// Supported reports whether the engine can listen at all.
func (e *Engine) Supported() bool {
	return strings.TrimSpace(e.cfg.APIKey) != "" && e.source != nil
}

// Start opens a websocket and capture session and begins streaming. onEnd
// fires exactly once when the session terminates; a nil error means a clean
// end (including an explicit Stop).
func (e *Engine) Start(onResults func(batch []voice.Result), onEnd func(err error)) (voice.Handle, error) {
	if !e.Supported() {
		return nil, errors.New("speech engine not configured")
	}

	wsURL, err := listenURL(e.cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("connecting to deepgram: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	audio, err := e.source.Start(ctx)
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("starting capture: %w", err)
	}

	sess := &engineSession{
		conn:   conn,
		audio:  audio,
		cancel: cancel,
		logger: e.logger,
	}
	go sess.readLoop(onResults, onEnd)
	go sess.pumpAudio()

	return sess, nil
}

type engineSession struct {
	conn   *websocket.Conn
	audio  capture.Session
	cancel context.CancelFunc
	logger *slog.Logger

	stopMu  sync.Mutex
	stopped bool

	writeMu sync.Mutex
}

// Stop tears the session down. The read loop observes the closed connection
// and reports a clean end.
func (s *engineSession) Stop() error {
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	s.cancel()
	_ = s.audio.Stop()
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	s.writeMu.Unlock()
	return s.conn.Close()
}

func (s *engineSession) wasStopped() bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.stopped
}

func (s *engineSession) pumpAudio() {
	buf := make([]byte, audioChunkSize)
	for {
		n, err := s.audio.Read(buf)
		if n > 0 {
			s.writeMu.Lock()
			writeErr := s.conn.WriteMessage(websocket.BinaryMessage, buf[:n])
			s.writeMu.Unlock()
			if writeErr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.wasStopped() {
				s.logger.Warn("capture read failed", "error", err)
			}
			return
		}
	}
}

func (s *engineSession) readLoop(onResults func([]voice.Result), onEnd func(error)) {
	defer func() {
		s.cancel()
		_ = s.audio.Stop()
		_ = s.conn.Close()
	}()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			onEnd(s.endError(err))
			return
		}

		var resp listenResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			continue
		}

		if strings.EqualFold(resp.Type, "Error") {
			message := strings.TrimSpace(resp.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			onEnd(errors.New(message))
			return
		}

		if batch := resp.toBatch(); len(batch) > 0 {
			onResults(batch)
		}
	}
}

// endError maps expected closures to a clean end.
func (s *engineSession) endError(err error) error {
	if s.wasStopped() {
		return nil
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return nil
	}
	return err
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r listenResponse) toBatch() []voice.Result {
	if len(r.Channel.Alternatives) == 0 {
		return nil
	}
	alts := make([]voice.Alternative, 0, len(r.Channel.Alternatives))
	for _, alt := range r.Channel.Alternatives {
		alts = append(alts, voice.Alternative{
			Transcript: alt.Transcript,
			Confidence: alt.Confidence,
		})
	}
	return []voice.Result{{Alternatives: alts, Final: r.IsFinal || r.SpeechFinal}}
}

func listenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base URL: %w", err)
	}

	query := u.Query()
	query.Set("model", cfg.Model)
	query.Set("language", cfg.Language)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	query.Set("channels", strconv.Itoa(cfg.Channels))
	query.Set("interim_results", "true")
	u.RawQuery = query.Encode()

	return u.String(), nil
}
