//go:build portaudio
// +build portaudio

package feedback

import (
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const toneSampleRate = 44100

func playTone(frequencyHz, durationMs int) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	framesPerBuffer := 512
	buffer := make([]float32, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(0, 1, toneSampleRate, framesPerBuffer, &buffer)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	totalFrames := toneSampleRate * durationMs / 1000
	phase := 0.0
	step := 2 * math.Pi * float64(frequencyHz) / toneSampleRate

	for written := 0; written < totalFrames; written += framesPerBuffer {
		for i := range buffer {
			// fade out over the tone to avoid a click at the end
			remaining := float64(totalFrames-written-i) / float64(totalFrames)
			if remaining < 0 {
				remaining = 0
			}
			buffer[i] = float32(0.15 * remaining * math.Sin(phase))
			phase += step
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}

	time.Sleep(time.Duration(durationMs) * time.Millisecond / 10)
	return nil
}
