// SPDX-License-Identifier: MIT
/*
Package engine runs the frame loop:

	fetcher -> sample.Processor -> bars.Processor -> transports
	                            \-> bpm.Detector  -/

Everything the loop touches is owned by the goroutine calling Run. The
only cross-thread state is the fetcher's SampleBuffer, which PortAudio
fills from its own callback thread, and the queued bar count change.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"audiobars/internal/bars"
	"audiobars/internal/bpm"
	"audiobars/internal/config"
	"audiobars/internal/fetcher"
	applog "audiobars/internal/log"
	"audiobars/internal/sample"
	"audiobars/internal/transport"
	"audiobars/internal/transport/udp"
)

var logger = applog.Named("engine")

type Engine struct {
	config *config.Config

	fetcher fetcher.Fetcher
	puller  fetcher.Puller // nil for callback driven fetchers
	samples *sample.Processor
	bars    *bars.Processor
	barsCfg bars.Config // as configured, read by SetAmountBars
	bpm     *bpm.Detector // nil when disabled

	transports transport.Fanout
	frame      transport.Frame
	interval   time.Duration

	pendingBars atomic.Uint32 // 0 = nothing queued
	amountBars  atomic.Uint32
	sendErrors  uint64
}

// New builds the fetcher, processors and configured transports. extra
// transports receive frames as well and are closed with the engine.
func New(cfg *config.Config, extra ...transport.Transport) (*Engine, error) {
	f, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithFetcher(cfg, f, extra...)
}

// NewWithFetcher is New with a caller supplied fetcher. The engine takes
// ownership of f and closes it if it implements io.Closer.
func NewWithFetcher(cfg *config.Config, f fetcher.Fetcher, extra ...transport.Transport) (e *Engine, err error) {
	defer func() {
		if err == nil {
			return
		}
		if c, ok := f.(io.Closer); ok {
			c.Close()
		}
	}()

	window, err := cfg.WindowFunc()
	if err != nil {
		return nil, err
	}
	barCfg, err := cfg.BarsConfig()
	if err != nil {
		return nil, err
	}

	e = &Engine{
		config:   cfg,
		fetcher:  f,
		samples:  sample.New(f, window),
		interval: time.Duration(float64(time.Second) / cfg.Engine.FrameRate),
	}
	e.puller, _ = f.(fetcher.Puller)

	e.barsCfg = barCfg
	if e.bars, err = bars.New(e.samples, barCfg); err != nil {
		return nil, err
	}
	e.amountBars.Store(uint32(barCfg.AmountBars))

	if cfg.BPM.Enabled {
		e.bpm, err = bpm.New(e.samples.SampleRate(), e.samples.FFTSize(), cfg.BPMConfig())
		if err != nil {
			return nil, err
		}
	}

	transports, err := newTransports(cfg)
	if err != nil {
		return nil, err
	}
	e.transports = append(transports, extra...)
	e.frame.BPM = bpm.DefaultBPM

	logger.Infof("%d channel(s) at %d Hz, %d bars, %.0f frames/s, %d transport(s)",
		e.samples.Channels(), e.samples.SampleRate(), e.bars.TotalAmountBars(), cfg.Engine.FrameRate, len(e.transports))
	return e, nil
}

func newFetcher(cfg *config.Config) (fetcher.Fetcher, error) {
	s := cfg.Source

	var gate *fetcher.NoiseGate
	if s.GateEnabled {
		gate = fetcher.NewNoiseGate(float64(s.GateThreshold))
	}

	switch s.Type {
	case config.SourceSynthetic:
		return fetcher.NewSynthetic(fetcher.SyntheticConfig{
			SampleRate: s.SampleRate,
			Channels:   s.Channels,
			FrameRate:  cfg.Engine.FrameRate,
			BPM:        s.SyntheticBPM,
			Tones:      s.SyntheticTones,
			Gate:       gate,
		})
	case config.SourceFile:
		return fetcher.NewFile(fetcher.FileConfig{
			Path:      s.Path,
			FrameRate: cfg.Engine.FrameRate,
			Loop:      s.Loop,
			Gate:      gate,
		})
	case config.SourceCapture:
		return fetcher.NewCapture(fetcher.CaptureConfig{
			DeviceID:        s.DeviceID,
			SampleRate:      float64(s.SampleRate),
			Channels:        s.Channels,
			FramesPerBuffer: s.FramesPerBuffer,
			LowLatency:      s.LowLatency,
			Gate:            gate,
			RecordPath:      s.RecordPath,
		})
	default:
		return nil, fmt.Errorf("unknown source type '%s'", s.Type)
	}
}

func newTransports(cfg *config.Config) (ts transport.Fanout, err error) {
	defer func() {
		if err != nil {
			ts.Close()
			ts = nil
		}
	}()

	t := cfg.Transport
	if t.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(t.WebSocketAddress)
		if err != nil {
			return ts, err
		}
		ts = append(ts, ws)
	}
	if t.UDPEnabled {
		pub, err := udp.Dial(t.UDPTargetAddress)
		if err != nil {
			return ts, err
		}
		ts = append(ts, pub)
	}
	if t.LogEnabled || cfg.Debug {
		ts = append(ts, transport.NewLoggingTransport(t.LogEvery))
	}
	if t.BPMFile != "" && cfg.BPM.Enabled {
		bf, err := transport.NewBPMFileTransport(t.BPMFile)
		if err != nil {
			return ts, err
		}
		ts = append(ts, bf)
	}
	return ts, nil
}

// Run produces frames until ctx is cancelled or a file source ends. It
// returns nil in both cases.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	logger.Infof("running, one frame every %s", e.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("stopped after %d frame(s)", e.frame.Sequence)
			return nil
		case <-ticker.C:
			if err := e.Step(); err != nil {
				if errors.Is(err, io.EOF) {
					logger.Infof("source finished after %d frame(s)", e.frame.Sequence)
					return nil
				}
				return err
			}
		}
	}
}

// Step produces a single frame. Run calls it on every tick.
func (e *Engine) Step() error {
	if n := e.pendingBars.Swap(0); n != 0 {
		if err := e.bars.SetAmountBars(uint16(n)); err != nil {
			return err
		}
		logger.Infof("now %d bars per channel", e.bars.TotalAmountBars())
	}

	if e.puller != nil {
		if err := e.puller.Pull(); err != nil {
			return err
		}
	}

	e.samples.ProcessNextSamples()
	e.frame.Bars = e.bars.ProcessBars()
	e.frame.Peak = e.samples.PeakFrequency(0)
	if e.bpm != nil {
		e.frame.BPM = e.bpm.Process(e.samples.Spectrum(0))
	}
	e.frame.Sequence++
	e.frame.Timestamp = time.Now()

	if err := e.transports.Send(&e.frame); err != nil {
		// Transports are best effort; report the first failure and then
		// every few seconds.
		e.sendErrors++
		if e.sendErrors == 1 || e.sendErrors%uint64(max(1, int(e.config.Engine.FrameRate)*5)) == 0 {
			logger.Warnf("transport: %v (%d failed frame(s))", err, e.sendErrors)
		}
	}
	return nil
}

// SetAmountBars queues a new bar count. It is applied before the next
// frame and may be called from any goroutine. Counts that do not fit into
// bars.MaxTotalBars with the configured padding are rejected.
func (e *Engine) SetAmountBars(n uint16) error {
	if n == 0 {
		return bars.ErrNoBars
	}
	cfg := e.barsCfg
	cfg.AmountBars = n
	if total := bars.TotalAmountBars(cfg, e.samples.SampleRate(), e.samples.FFTSize()); total > bars.MaxTotalBars {
		return fmt.Errorf("%w: %d bars with padding need %d", bars.ErrTooManyBars, n, total)
	}
	e.pendingBars.Store(uint32(n))
	e.amountBars.Store(uint32(n))
	return nil
}

// AmountBars returns the configured bar count, including a queued change.
func (e *Engine) AmountBars() uint16 {
	return uint16(e.amountBars.Load())
}

// Frame returns the most recent frame. It is only valid on the goroutine
// running the engine.
func (e *Engine) Frame() *transport.Frame {
	return &e.frame
}

// Close shuts down all transports and the fetcher.
func (e *Engine) Close() error {
	errs := []error{e.transports.Close()}
	if c, ok := e.fetcher.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
