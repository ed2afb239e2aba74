// Package voice presents one logical listening operation on top of a speech
// engine whose underlying sessions may terminate unexpectedly or after each
// utterance.
package voice

// Alternative is one transcription hypothesis.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognition result with its hypotheses, Final when the
// engine has committed to it.
type Result struct {
	Alternatives []Alternative
	Final        bool
}

// Handle is an active underlying engine session. Stop is best-effort; the
// engine reports termination through the callbacks given at start.
type Handle interface {
	Stop() error
}

// Engine is the underlying speech-recognition capability. Implementations
// invoke onResults with each result batch and onEnd exactly once when the
// session terminates, with a nil error for a clean end.
type Engine interface {
	Supported() bool
	Start(onResults func(batch []Result), onEnd func(err error)) (Handle, error)
}
