//go:build !portaudio
// +build !portaudio

package feedback

func playTone(frequencyHz, durationMs int) error {
	return nil
}
