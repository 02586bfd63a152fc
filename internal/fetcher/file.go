// SPDX-License-Identifier: MIT
package fetcher

import (
	"errors"
	"fmt"
	"io"
	"os"

	applog "audiobars/internal/log"
)

var fileLog = applog.Named("fetcher/file")

// FileConfig selects the file to replay.
type FileConfig struct {
	Path      string
	FrameRate float64 // pulls per second
	Loop      bool    // rewind at end of stream instead of reporting io.EOF
	Gate      *NoiseGate
}

// File replays a decoded audio file at real-time pace: every Pull pushes
// the samples for one frame interval.
type File struct {
	buffer *SampleBuffer
	dec    decoder
	file   *os.File
	loop   bool
	gate   *NoiseGate

	scratch []float32
}

var _ Fetcher = (*File)(nil)
var _ Puller = (*File)(nil)

func NewFile(cfg FileConfig) (*File, error) {
	dec, f, err := openDecoder(cfg.Path)
	if err != nil {
		return nil, err
	}
	if dec.SampleRate() <= 0 || dec.Channels() <= 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, dec.SampleRate(), dec.Channels())
	}

	frames := framesPerPull(dec.SampleRate(), cfg.FrameRate)
	fileLog.Infof("Opened %s (%d Hz, %d channels, %d frames per pull)", cfg.Path, dec.SampleRate(), dec.Channels(), frames)

	return &File{
		buffer:  NewSampleBuffer(dec.SampleRate()),
		dec:     dec,
		file:    f,
		loop:    cfg.Loop,
		gate:    cfg.Gate,
		scratch: make([]float32, frames*dec.Channels()),
	}, nil
}

// Pull decodes the next frame interval. At the end of the stream it either
// rewinds (Loop) or returns io.EOF.
func (f *File) Pull() error {
	n, err := f.dec.ReadSamples(f.scratch)
	if errors.Is(err, io.EOF) && f.loop {
		if rerr := f.dec.Rewind(); rerr != nil {
			return fmt.Errorf("failed to rewind audio file: %w", rerr)
		}
		fileLog.Debugf("Rewound to start of stream")
		n, err = f.dec.ReadSamples(f.scratch)
	}
	if err != nil {
		return err
	}

	block := f.scratch[:n]
	f.gate.Apply(block)
	f.buffer.PushBefore(block)
	return nil
}

func (f *File) SampleBuffer() *SampleBuffer { return f.buffer }
func (f *File) Channels() int               { return f.dec.Channels() }

func (f *File) Close() error {
	return f.file.Close()
}
