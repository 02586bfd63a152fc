// SPDX-License-Identifier: MIT

/*
Package fetcher feeds raw interleaved audio into a SampleBuffer.

Three sources are provided:
  - Synthetic generates tones and a kick drum at a fixed tempo.
  - File decodes WAV, MP3 or Ogg Vorbis and replays it in real time.
  - Capture reads an input device through PortAudio and can record it.

Synthetic and File produce samples on the frame loop's goroutine through
Pull; Capture pushes from the PortAudio callback thread.
*/
package fetcher

import "errors"

// Fetcher is anything that owns a SampleBuffer and knows how many channels
// are interleaved in it.
type Fetcher interface {
	SampleBuffer() *SampleBuffer
	Channels() int
}

// Puller is implemented by fetchers that produce audio on demand. The frame
// loop calls Pull once before every frame.
type Puller interface {
	Pull() error
}

var (
	ErrUnsupportedFormat = errors.New("unsupported audio file format")
	ErrInvalidChannels   = errors.New("channel count must be positive")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// framesPerPull is how many frames a pull-driven fetcher produces so that
// frameRate pulls add up to one second of audio.
func framesPerPull(sampleRate int, frameRate float64) int {
	if frameRate <= 0 {
		frameRate = 60
	}
	return max(1, int(float64(sampleRate)/frameRate))
}
