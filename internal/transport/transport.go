// SPDX-License-Identifier: MIT

// Package transport delivers processed frames to consumers outside the
// render loop.
package transport

import (
	"errors"
	"time"

	applog "audiobars/internal/log"
)

var logger = applog.Named("transport")

var ErrClosed = errors.New("transport closed")

// Frame is the result of one engine tick.
type Frame struct {
	Sequence  uint64      `json:"seq"`
	Timestamp time.Time   `json:"ts"`
	BPM       float64     `json:"bpm"`
	Peak      float64     `json:"peak_hz"` // dominant frequency of the first channel
	Bars      [][]float64 `json:"bars"` // Bars[channel][bar]
}

// Transport receives every frame produced by the engine. Send is called
// from the render loop and must not block on slow consumers. The frame and
// its Bars are reused after Send returns; implementations that hand the
// data to another goroutine must copy or encode it first.
type Transport interface {
	Send(frame *Frame) error
	Close() error
}

// Fanout sends every frame to all of its transports.
type Fanout []Transport

// Send continues past failing transports and returns their joined errors.
func (f Fanout) Send(frame *Frame) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Fanout(nil)
