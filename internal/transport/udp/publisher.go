// SPDX-License-Identifier: MIT

// Package udp publishes frames as compact binary datagrams, one per frame.
package udp

import (
	"bytes"
	"fmt"
	"sync"

	applog "audiobars/internal/log"
	"audiobars/internal/transport"
)

// Publisher is a transport.Transport that packs every frame into a single
// datagram and hands it to a Sender.
type Publisher struct {
	sender *Sender

	mu      sync.Mutex
	buf     bytes.Buffer
	scratch []float32
	closed  bool
}

func NewPublisher(sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	return &Publisher{sender: sender}, nil
}

// Dial creates a Sender for targetAddress and a Publisher on top of it.
func Dial(targetAddress string) (*Publisher, error) {
	sender, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return NewPublisher(sender)
}

// Send packs frame and transmits it. The sequence number on the wire is
// the low 32 bits of frame.Sequence.
func (p *Publisher) Send(frame *transport.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return transport.ErrClosed
	}

	p.buf.Reset()
	var err error
	p.scratch, err = appendPacket(&p.buf, p.scratch, uint32(frame.Sequence), frame.Timestamp.UnixNano(), frame.BPM, frame.Bars)
	if err != nil {
		return fmt.Errorf("pack frame %d: %w", frame.Sequence, err)
	}

	if err := p.sender.Send(p.buf.Bytes()); err != nil {
		return err
	}
	if logger.Enabled(applog.LevelDebug) {
		logger.Debugf("sent packet %d (%d bytes)", uint32(frame.Sequence), p.buf.Len())
	}
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.sender.Close()
}

var _ transport.Transport = (*Publisher)(nil)
