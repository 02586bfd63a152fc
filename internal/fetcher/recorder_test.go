// SPDX-License-Identifier: MIT
package fetcher

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestRecorderStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	r := NewRecorder(44_100, 2)

	if r.Recording() {
		t.Fatal("recorder should start idle")
	}
	if err := r.Start(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if !r.Recording() {
		t.Error("recorder should be recording after Start")
	}
	if err := r.Start(filename); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if r.Recording() {
		t.Error("recorder should be idle after Stop")
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop() when idle should be a no-op, got %v", err)
	}
	if _, err := os.Stat(filename); err != nil {
		t.Errorf("Recording file was not created: %v", err)
	}
}

func TestRecorderErrorCases(t *testing.T) {
	r := NewRecorder(44_100, 1)
	if err := r.Start("/nonexistent/path/file.wav"); err == nil {
		t.Error("expected error for invalid path")
	}
	if err := r.Write([]float32{0.1, 0.2}); err != nil {
		t.Errorf("Write() while idle should be a no-op, got %v", err)
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "roundtrip.wav")
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5, 1.5, -1.5, 0.75}

	r := NewRecorder(8_000, 2)
	if err := r.Start(filename); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Write(samples[:4]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := r.Write(samples[4:]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("recorded file is not a valid WAV")
	}
	if dec.SampleRate != 8_000 || dec.NumChans != 2 || dec.BitDepth != RecordBitDepth {
		t.Fatalf("format = %d Hz, %d ch, %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() error = %v", err)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, v := range buf.Data {
		want := math.Max(-1, math.Min(1, float64(samples[i])))
		got := float64(v) / 32767
		if math.Abs(got-want) > 1e-3 {
			t.Errorf("sample %d = %f, want %f", i, got, want)
		}
	}
}
