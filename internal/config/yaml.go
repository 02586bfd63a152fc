// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"audiobars/internal/bars"
	"audiobars/internal/bpm"
	"audiobars/internal/interpolation"
	applog "audiobars/internal/log"
	"audiobars/internal/sample"
	"audiobars/pkg/bitint"

	"gopkg.in/yaml.v3"
)

var logger = applog.Named("config")

var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (debug logging and more frequent frame logs).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Source    SourceConfig    `yaml:"source"`    // Where samples come from.
	Bars      BarsConfig      `yaml:"bars"`      // Spectrum to bars mapping.
	BPM       BPMConfig       `yaml:"bpm"`       // Tempo detection.
	Engine    EngineConfig    `yaml:"engine"`    // Frame loop settings.
	Transport TransportConfig `yaml:"transport"` // Frame delivery.
}

// SourceConfig selects and configures the sample fetcher.
type SourceConfig struct {
	Type            string    `yaml:"type"`              // "capture", "file" or "synthetic".
	SampleRate      int       `yaml:"sample_rate"`       // Sample rate in Hz (capture and synthetic).
	Channels        int       `yaml:"channels"`          // Number of channels to capture or generate.
	DeviceID        int       `yaml:"device_id"`         // PortAudio input device index (-1 for default).
	FramesPerBuffer int       `yaml:"frames_per_buffer"` // PortAudio callback size, power of two.
	LowLatency      bool      `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	RecordPath      string    `yaml:"record_path"`       // Record the captured input to this WAV file.
	Path            string    `yaml:"path"`              // Audio file to play (wav, mp3, ogg).
	Loop            bool      `yaml:"loop"`              // Restart the file at its end.
	GateEnabled     bool      `yaml:"gate_enabled"`      // Silence blocks whose peak is below gate_threshold.
	GateThreshold   float32   `yaml:"gate_threshold"`    // Linear amplitude in [0, 1].
	SyntheticBPM    float64   `yaml:"synthetic_bpm"`     // Kick tempo of the synthetic source.
	SyntheticTones  []float64 `yaml:"synthetic_tones"`   // Sine frequencies of the synthetic source.
}

// BarsConfig mirrors bars.Config with YAML friendly names.
type BarsConfig struct {
	Amount        uint16         `yaml:"amount"`
	MinFrequency  uint16         `yaml:"min_frequency"`
	MaxFrequency  uint16         `yaml:"max_frequency"`
	Sensitivity   float64        `yaml:"sensitivity"`
	Interpolation string         `yaml:"interpolation"` // "none", "linear" or "cubic".
	Distribution  string         `yaml:"distribution"`  // "uniform" or "natural".
	Padding       *PaddingConfig `yaml:"padding,omitempty"`
}

type PaddingConfig struct {
	Side string `yaml:"side"` // "left", "right" or "both".
	Size uint16 `yaml:"size"` // 0 picks the size automatically.
}

type BPMConfig struct {
	Enabled             bool    `yaml:"enabled"`
	HistorySeconds      float64 `yaml:"history_seconds"`
	MinBPM              float64 `yaml:"min_bpm"`
	MaxBPM              float64 `yaml:"max_bpm"`
	EstimateHistorySize int     `yaml:"estimate_history_size"`
}

type EngineConfig struct {
	FrameRate float64 `yaml:"frame_rate"` // Frames per second.
	Window    string  `yaml:"window"`     // FFT window function.
}

// TransportConfig holds settings related to sending frames out of the process.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve frames as JSON over a websocket.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address of the websocket server.
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send binary frames over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	LogEnabled       bool   `yaml:"log_enabled"`        // Log frame summaries at debug level.
	LogEvery         uint64 `yaml:"log_every"`          // Log one frame out of this many.
	BPMFile          string `yaml:"bpm_file"`           // Keep the rounded BPM in this file, empty disables.
}

// Default returns the built-in configuration.
func Default() *Config {
	barDefaults := bars.DefaultConfig()
	bpmDefaults := bpm.DefaultConfig()

	return &Config{
		LogLevel: DefaultLogLevel,
		Source: SourceConfig{
			Type:            DefaultSource,
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			DeviceID:        DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			GateEnabled:     true,
			GateThreshold:   DefaultGateThreshold,
			SyntheticBPM:    DefaultSyntheticBPM,
			SyntheticTones:  []float64{110, 440, 3520},
		},
		Bars: BarsConfig{
			Amount:        barDefaults.AmountBars,
			MinFrequency:  barDefaults.FreqRange.Min,
			MaxFrequency:  barDefaults.FreqRange.Max,
			Sensitivity:   barDefaults.Sensitivity,
			Interpolation: barDefaults.Interpolation.String(),
			Distribution:  barDefaults.Distribution.String(),
		},
		BPM: BPMConfig{
			Enabled:             true,
			HistorySeconds:      bpmDefaults.HistorySeconds,
			MinBPM:              bpmDefaults.MinBPM,
			MaxBPM:              bpmDefaults.MaxBPM,
			EstimateHistorySize: bpmDefaults.EstimateHistorySize,
		},
		Engine: EngineConfig{
			FrameRate: DefaultFrameRate,
			Window:    DefaultWindow,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			LogEvery:         DefaultLogEvery,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. Keys missing from the file keep their defaults. After loading, it applies
// environment variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	// Environment variables win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, dir+"/audiobars/config.yaml")
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks the settings the processors do not check themselves.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level '%s'", ErrInvalid, c.LogLevel)
	}

	s := c.Source
	switch s.Type {
	case SourceCapture:
		if s.DeviceID < MinDeviceID {
			return fmt.Errorf("%w: source.device_id must be >= %d", ErrInvalid, MinDeviceID)
		}
		if s.FramesPerBuffer <= 0 || s.FramesPerBuffer > MaxBufferFrames {
			return fmt.Errorf("%w: source.frames_per_buffer %d must be a power of two <= %d",
				ErrInvalid, s.FramesPerBuffer, MaxBufferFrames)
		}
		if !bitint.IsPowerOfTwo(s.FramesPerBuffer) {
			return fmt.Errorf("%w: source.frames_per_buffer %d is not a power of two (try %d)",
				ErrInvalid, s.FramesPerBuffer, bitint.NextPowerOfTwo(s.FramesPerBuffer))
		}
	case SourceFile:
		if s.Path == "" {
			return fmt.Errorf("%w: source.path must be set for the file source", ErrInvalid)
		}
	case SourceSynthetic:
	default:
		return fmt.Errorf("%w: unknown source.type '%s'", ErrInvalid, s.Type)
	}
	if s.Type != SourceFile {
		if s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate {
			return fmt.Errorf("%w: source.sample_rate %d outside [%d, %d]", ErrInvalid, s.SampleRate, MinSampleRate, MaxSampleRate)
		}
		if s.Channels < 1 || s.Channels > MaxChannels {
			return fmt.Errorf("%w: source.channels %d outside [1, %d]", ErrInvalid, s.Channels, MaxChannels)
		}
	}
	if s.GateThreshold < 0 || s.GateThreshold > 1 {
		return fmt.Errorf("%w: source.gate_threshold %v outside [0, 1]", ErrInvalid, s.GateThreshold)
	}

	if !(c.Engine.FrameRate > 0) || c.Engine.FrameRate > MaxFrameRate {
		return fmt.Errorf("%w: engine.frame_rate %v outside (0, %v]", ErrInvalid, c.Engine.FrameRate, MaxFrameRate)
	}
	if _, err := c.WindowFunc(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	barCfg, err := c.BarsConfig()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := barCfg.Validate(); err != nil {
		return fmt.Errorf("%w: bars: %w", ErrInvalid, err)
	}
	if c.BPM.Enabled {
		if err := c.BPMConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return fmt.Errorf("%w: transport.websocket_address must be set when the websocket is enabled", ErrInvalid)
	}
	if t.UDPEnabled && !strings.Contains(t.UDPTargetAddress, ":") {
		return fmt.Errorf("%w: transport.udp_target_address '%s' appears invalid (missing port?)", ErrInvalid, t.UDPTargetAddress)
	}
	return nil
}

// BarsConfig converts the bars section.
func (c *Config) BarsConfig() (bars.Config, error) {
	b := c.Bars
	variant, err := interpolation.ParseVariant(b.Interpolation)
	if err != nil {
		return bars.Config{}, err
	}
	dist, err := bars.ParseDistribution(b.Distribution)
	if err != nil {
		return bars.Config{}, err
	}

	cfg := bars.Config{
		AmountBars:    b.Amount,
		FreqRange:     bars.FreqRange{Min: b.MinFrequency, Max: b.MaxFrequency},
		Sensitivity:   b.Sensitivity,
		Interpolation: variant,
		Distribution:  dist,
	}
	if b.Padding != nil {
		side, err := bars.ParsePaddingSide(b.Padding.Side)
		if err != nil {
			return bars.Config{}, err
		}
		cfg.Padding = &bars.PaddingConfig{Side: side, Size: b.Padding.Size}
	}
	return cfg, nil
}

// BPMConfig converts the bpm section. The detector runs once per engine
// frame, so the frame rate is taken from the engine section.
func (c *Config) BPMConfig() bpm.Config {
	return bpm.Config{
		HistorySeconds:      c.BPM.HistorySeconds,
		MinBPM:              c.BPM.MinBPM,
		MaxBPM:              c.BPM.MaxBPM,
		EstimateHistorySize: c.BPM.EstimateHistorySize,
		FrameRate:           c.Engine.FrameRate,
	}
}

func (c *Config) WindowFunc() (sample.WindowFunc, error) {
	return sample.ParseWindowFunc(c.Engine.Window)
}

// Level returns the effective log level. Debug mode always logs at debug.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides lets ENV_* variables replace individual settings.
// Unparsable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			logger.Infof("overriding debug from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		logger.Infof("overriding log_level from env: %s", val)
	}

	// ENV_BARS_AMOUNT
	if val, ok := os.LookupEnv("ENV_BARS_AMOUNT"); ok {
		if n, err := strconv.ParseUint(val, 10, 16); err == nil {
			c.Bars.Amount = uint16(n)
			logger.Infof("overriding bars.amount from env: %d", n)
		} else {
			logger.Warnf("ignoring ENV_BARS_AMOUNT=%q: %v", val, err)
		}
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			logger.Infof("overriding transport.websocket_enabled from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_WS_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		logger.Infof("overriding transport.websocket_address from env: %s", val)
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			logger.Infof("overriding transport.udp_enabled from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		logger.Infof("overriding transport.udp_target_address from env: %s", val)
	}
}
