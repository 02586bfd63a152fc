// SPDX-License-Identifier: MIT
package fetcher

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordBitDepth is the PCM depth of recorded files.
const RecordBitDepth = 16

var ErrAlreadyRecording = errors.New("already recording")

// Recorder writes interleaved float32 blocks to a 16-bit PCM WAV file.
// Write may be called from the capture callback while Start and Stop run
// on another goroutine.
type Recorder struct {
	mu         sync.Mutex
	sampleRate int
	channels   int

	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

func NewRecorder(sampleRate, channels int) *Recorder {
	return &Recorder{sampleRate: sampleRate, channels: channels}
}

// Start creates filename and begins accepting writes.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder != nil {
		return ErrAlreadyRecording
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}

	r.file = file
	r.encoder = wav.NewEncoder(file, r.sampleRate, RecordBitDepth, r.channels, 1)
	r.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
		Data:           make([]int, 0, 4096),
		SourceBitDepth: RecordBitDepth,
	}
	return nil
}

// Recording reports whether Start has been called without a matching Stop.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.encoder != nil
}

// Write appends samples. It is a no-op while not recording.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return nil
	}
	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]

	const full = 1<<(RecordBitDepth-1) - 1
	for i, s := range samples {
		s = max(-1, min(1, s))
		r.buf.Data[i] = int(s * full)
	}
	return r.encoder.Write(r.buf)
}

// Stop finalizes the WAV header and closes the file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return nil
	}
	encErr := r.encoder.Close()
	fileErr := r.file.Close()
	r.encoder, r.file = nil, nil

	if encErr != nil {
		return fmt.Errorf("failed to finalize recording: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("failed to close recording: %w", fileErr)
	}
	return nil
}
