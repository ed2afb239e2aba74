package feedback

import "log/slog"

// Cues plays non-spoken feedback: a short tone for changeover rows and a
// vibration where hardware supports it.
type Cues interface {
	PlayTone(frequencyHz, durationMs int)
	Vibrate(durationMs int)
}

// AudioCues plays tones through the local audio output when compiled with
// the portaudio build tag, and silently no-ops otherwise. Vibration has no
// hardware path on desktop; it is logged at debug level only.
type AudioCues struct {
	logger *slog.Logger
}

// NewAudioCues creates the default cue player.
func NewAudioCues(logger *slog.Logger) *AudioCues {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AudioCues{logger: logger}
}

// PlayTone plays a sine tone, best-effort.
func (c *AudioCues) PlayTone(frequencyHz, durationMs int) {
	if frequencyHz <= 0 || durationMs <= 0 {
		return
	}
	go func() {
		if err := playTone(frequencyHz, durationMs); err != nil {
			c.logger.Debug("tone failed", "error", err)
		}
	}()
}

// Vibrate is a no-op on platforms without a vibration capability.
func (c *AudioCues) Vibrate(durationMs int) {
	c.logger.Debug("vibrate", "ms", durationMs)
}
