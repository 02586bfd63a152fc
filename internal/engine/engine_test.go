// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"audiobars/internal/bars"
	"audiobars/internal/config"
	"audiobars/internal/fetcher"
	"audiobars/internal/transport"
)

type captureTransport struct {
	frames int
	last   transport.Frame
	closed bool
}

func (c *captureTransport) Send(f *transport.Frame) error {
	c.frames++
	c.last = *f
	return nil
}

func (c *captureTransport) Close() error {
	c.closed = true
	return nil
}

// finiteFetcher pushes a constant signal and reports io.EOF after limit
// pulls.
type finiteFetcher struct {
	buffer *fetcher.SampleBuffer
	block  []float32
	pulls  int
	limit  int
	closed bool
}

func newFiniteFetcher(limit int) *finiteFetcher {
	block := make([]float32, 256)
	for i := range block {
		block[i] = 0.5
	}
	return &finiteFetcher{buffer: fetcher.NewSampleBuffer(44100), block: block, limit: limit}
}

func (f *finiteFetcher) SampleBuffer() *fetcher.SampleBuffer { return f.buffer }
func (f *finiteFetcher) Channels() int                       { return 1 }
func (f *finiteFetcher) Close() error                        { f.closed = true; return nil }

func (f *finiteFetcher) Pull() error {
	if f.pulls == f.limit {
		return io.EOF
	}
	f.pulls++
	f.buffer.PushBefore(f.block)
	return nil
}

func syntheticConfig() *config.Config {
	cfg := config.Default()
	cfg.Source.Type = config.SourceSynthetic
	cfg.Source.Channels = 2
	cfg.Engine.FrameRate = 200
	return cfg
}

func TestStepProducesFrames(t *testing.T) {
	out := &captureTransport{}
	e, err := New(syntheticConfig(), out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for range 5 {
		if err := e.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	if out.frames != 5 || out.last.Sequence != 5 {
		t.Errorf("got %d frames, last #%d; want 5 and #5", out.frames, out.last.Sequence)
	}
	if len(out.last.Bars) != 2 || len(out.last.Bars[0]) != 30 {
		t.Fatalf("bars shape = %dx%d, want 2x30", len(out.last.Bars), len(out.last.Bars[0]))
	}
	nonZero := false
	for _, v := range out.last.Bars[0] {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("synthetic source produced only zero bars")
	}
	if out.last.Peak <= 0 {
		t.Errorf("Peak = %v Hz for a synthetic tone", out.last.Peak)
	}
	if out.last.BPM <= 0 {
		t.Errorf("BPM = %v", out.last.BPM)
	}

	if err := e.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !out.closed {
		t.Error("extra transport not closed")
	}
}

func TestSetAmountBarsAppliesBeforeNextFrame(t *testing.T) {
	out := &captureTransport{}
	e, err := New(syntheticConfig(), out)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	if err := e.SetAmountBars(12); err != nil {
		t.Fatalf("SetAmountBars: %v", err)
	}
	if e.AmountBars() != 12 {
		t.Errorf("AmountBars() = %d, want 12", e.AmountBars())
	}
	if len(out.last.Bars[0]) != 30 {
		t.Errorf("resize applied before the next frame")
	}

	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	if got := len(out.last.Bars[0]); got != 12 {
		t.Errorf("frame has %d bars, want 12", got)
	}

	if err := e.SetAmountBars(0); err == nil {
		t.Error("SetAmountBars(0) should fail")
	}
}

func TestRunStopsAtEndOfSource(t *testing.T) {
	cfg := syntheticConfig()
	cfg.BPM.Enabled = false
	src := newFiniteFetcher(3)
	out := &captureTransport{}

	e, err := NewWithFetcher(cfg, src, out)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.frames != 3 {
		t.Errorf("got %d frames, want 3", out.frames)
	}
	if ctx.Err() != nil {
		t.Error("Run only returned on the timeout")
	}

	if err := e.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !src.closed {
		t.Error("fetcher not closed")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e, err := New(syntheticConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBPMFileTransportIsWired(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Transport.BPMFile = filepath.Join(t.TempDir(), "bpm")

	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if len(e.transports) != 1 {
		t.Errorf("got %d transports, want 1", len(e.transports))
	}
}

func TestNewRejectsUnknownSource(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Source.Type = "radio"
	if _, err := New(cfg); err == nil {
		t.Error("expected an error for an unknown source")
	}
}

func TestNewFailsOnBadTransport(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Transport.UDPEnabled = true
	cfg.Transport.UDPTargetAddress = "not an address"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected an error for an unresolvable UDP target")
	}
}

func TestNewWithFetcherClosesFetcherOnError(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Engine.Window = "triangle"
	src := newFiniteFetcher(1)

	if _, err := NewWithFetcher(cfg, src); err == nil {
		t.Fatal("expected an error for an unknown window")
	}
	if !src.closed {
		t.Error("fetcher left open after a failed construction")
	}
}

func TestSetAmountBarsRejectsPastLimit(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Bars.Padding = &config.PaddingConfig{Side: "both", Size: 1}
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if err := e.SetAmountBars(0xFFFF); !errors.Is(err, bars.ErrTooManyBars) {
		t.Fatalf("SetAmountBars(65535) error = %v, want %v", err, bars.ErrTooManyBars)
	}
	if e.AmountBars() != 30 {
		t.Errorf("AmountBars() = %d after a rejected change, want 30", e.AmountBars())
	}
	if err := e.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := e.bars.TotalAmountBars(); got != 32 {
		t.Errorf("TotalAmountBars() = %d, want 32", got)
	}
}
