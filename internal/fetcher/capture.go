// SPDX-License-Identifier: MIT
package fetcher

import (
	"errors"
	"fmt"
	"time"

	applog "audiobars/internal/log"

	"github.com/gordonklaus/portaudio"
)

var captureLog = applog.Named("fetcher/capture")

// CaptureConfig selects the input device and stream parameters.
type CaptureConfig struct {
	DeviceID        int // DefaultDeviceID for the host default
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
	Gate            *NoiseGate
	RecordPath      string // record the raw input to this WAV file when set
}

// Capture streams an input device into a SampleBuffer from the PortAudio
// callback thread.
type Capture struct {
	buffer   *SampleBuffer
	channels int
	gate     *NoiseGate
	recorder *Recorder
	stream   *portaudio.Stream

	// Only touched by the callback.
	scratch []float32
}

var _ Fetcher = (*Capture)(nil)

// NewCapture initializes PortAudio, opens the device and starts streaming.
// Close releases all of it.
func NewCapture(cfg CaptureConfig) (c *Capture, err error) {
	if cfg.Channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			Terminate()
		}
	}()

	device, err := inputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	c = &Capture{
		buffer:   NewSampleBuffer(int(cfg.SampleRate)),
		channels: cfg.Channels,
		gate:     cfg.Gate,
		scratch:  make([]float32, cfg.FramesPerBuffer*cfg.Channels),
	}

	if cfg.RecordPath != "" {
		c.recorder = NewRecorder(int(cfg.SampleRate), cfg.Channels)
		if err := c.recorder.Start(cfg.RecordPath); err != nil {
			return nil, err
		}
		captureLog.Infof("Recording input to %s", cfg.RecordPath)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  latency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, c.process)
	if err != nil {
		c.stopRecorder()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		c.stopRecorder()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	c.stream = stream

	captureLog.Infof("Capturing from %q (%.0f Hz, %d channels, latency %s)",
		device.Name, cfg.SampleRate, cfg.Channels, latency.Round(time.Microsecond))
	return c, nil
}

// process runs on the PortAudio thread and must not allocate.
func (c *Capture) process(in []float32) {
	if cap(c.scratch) < len(in) {
		// The host delivered more than FramesPerBuffer; grow once.
		c.scratch = make([]float32, len(in))
	}
	block := c.scratch[:len(in)]
	copy(block, in)

	if c.recorder != nil {
		if err := c.recorder.Write(block); err != nil {
			captureLog.Errorf("Error writing to WAV file: %v", err)
		}
	}
	c.gate.Apply(block)
	c.buffer.PushBefore(block)
}

func (c *Capture) stopRecorder() error {
	if c.recorder == nil {
		return nil
	}
	return c.recorder.Stop()
}

func (c *Capture) SampleBuffer() *SampleBuffer { return c.buffer }
func (c *Capture) Channels() int               { return c.channels }

// Close stops the stream, finalizes any recording and terminates PortAudio.
func (c *Capture) Close() error {
	var errs []error
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop input stream: %w", err))
		}
		if err := c.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close input stream: %w", err))
		}
		c.stream = nil
	}
	if err := c.stopRecorder(); err != nil {
		errs = append(errs, err)
	}
	if err := Terminate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
