// SPDX-License-Identifier: MIT
package cmd

import (
	"testing"

	"audiobars/internal/config"
)

func TestParseArgs_Run(t *testing.T) {
	opts, err := ParseArgs([]string{
		"--source", "synthetic",
		"--bars", "12",
		"--interpolation", "linear",
		"--udp", "127.0.0.1:9000",
		"--gate", "0",
		"--headless",
		"-v",
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.Command != CommandRun || !opts.Headless {
		t.Errorf("command = %q, headless = %v", opts.Command, opts.Headless)
	}

	cfg := opts.Config
	if cfg.Source.Type != config.SourceSynthetic || cfg.Bars.Amount != 12 || cfg.Bars.Interpolation != "linear" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "127.0.0.1:9000" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.Source.GateEnabled || !cfg.Debug {
		t.Errorf("gate enabled = %v, debug = %v", cfg.Source.GateEnabled, cfg.Debug)
	}
}

func TestParseArgs_FileImpliesSource(t *testing.T) {
	opts, err := ParseArgs([]string{"--file", "song.ogg", "--loop"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	s := opts.Config.Source
	if s.Type != config.SourceFile || s.Path != "song.ogg" || !s.Loop {
		t.Errorf("source = %+v", s)
	}
}

func TestParseArgs_List(t *testing.T) {
	opts, err := ParseArgs([]string{"list", "--interactive"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.Command != CommandList || !opts.Interactive {
		t.Errorf("command = %q, interactive = %v", opts.Command, opts.Interactive)
	}
}

func TestParseArgs_Invalid(t *testing.T) {
	tests := [][]string{
		{"--bars", "0"},
		{"--frames-per-buffer", "500"},
		{"--source", "radio"},
		{"--window", "triangle"},
		{"--no-such-flag"},
		{"unexpected"},
	}
	for _, args := range tests {
		if _, err := ParseArgs(args); err == nil {
			t.Errorf("ParseArgs(%q) succeeded, want an error", args)
		}
	}
}
