// SPDX-License-Identifier: MIT
package fetcher

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWav records n mono samples counting up from 1/n to 1.
func writeTestWav(t *testing.T, sampleRate, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i+1) / float32(n)
	}

	r := NewRecorder(sampleRate, 1)
	if err := r.Start(path); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Write(samples); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	return path
}

func TestFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(FileConfig{Path: path}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := NewFile(FileConfig{Path: "does-not-exist.wav"}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileCorruptMP3AndOgg(t *testing.T) {
	for _, name := range []string{"bad.mp3", "bad.ogg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte("This is not compressed audio"), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewFile(FileConfig{Path: path}); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestFileReplaysWav(t *testing.T) {
	// 8 kHz at 62.5 pulls per second is exactly 128 frames per pull.
	path := writeTestWav(t, 8_000, 256)
	f, err := NewFile(FileConfig{Path: path, FrameRate: 62.5})
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer f.Close()

	if f.Channels() != 1 || f.SampleBuffer().SampleRate() != 8_000 {
		t.Fatalf("format = %d ch @ %d Hz", f.Channels(), f.SampleBuffer().SampleRate())
	}

	if err := f.Pull(); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	got := snapshot(f.SampleBuffer())
	for i := range 128 {
		want := float64(i+1) / 256
		if math.Abs(float64(got[i])-want) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, got[i], want)
		}
	}

	if err := f.Pull(); err != nil {
		t.Fatalf("second Pull() error = %v", err)
	}
	if err := f.Pull(); !errors.Is(err, io.EOF) {
		t.Errorf("Pull() past end = %v, want io.EOF", err)
	}
}

func TestFileLoops(t *testing.T) {
	path := writeTestWav(t, 8_000, 128)
	f, err := NewFile(FileConfig{Path: path, FrameRate: 62.5, Loop: true})
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer f.Close()

	for i := range 5 {
		if err := f.Pull(); err != nil {
			t.Fatalf("Pull() %d error = %v", i, err)
		}
	}
	got := snapshot(f.SampleBuffer())
	if math.Abs(float64(got[0])-1.0/128) > 1e-3 {
		t.Errorf("looped stream should restart at the first sample, got %f", got[0])
	}
}
