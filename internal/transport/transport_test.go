// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingTransport struct {
	frames []uint64
	err    error
	closed bool
}

func (r *recordingTransport) Send(f *Frame) error {
	r.frames = append(r.frames, f.Sequence)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.closed = true
	return r.err
}

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	ok, failing := &recordingTransport{}, &recordingTransport{err: boom}
	f := Fanout{failing, ok}

	if err := f.Send(&Frame{Sequence: 1}); !errors.Is(err, boom) {
		t.Errorf("Send error = %v, want %v", err, boom)
	}
	if len(ok.frames) != 1 {
		t.Errorf("healthy transport got %d frames after a failing one, want 1", len(ok.frames))
	}
	if err := f.Close(); !errors.Is(err, boom) || !ok.closed {
		t.Errorf("Close error = %v, closed = %v", err, ok.closed)
	}
}

func TestBPMFileTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpm")
	bt, err := NewBPMFileTransport(path)
	if err != nil {
		t.Fatal(err)
	}

	read := func() string {
		t.Helper()
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	if err := bt.Send(&Frame{BPM: 127.6}); err != nil {
		t.Fatal(err)
	}
	if got := read(); got != "128\n" {
		t.Errorf("file = %q, want %q", got, "128\n")
	}

	// Same rounded value: the file is left alone.
	if err := os.WriteFile(path, []byte("sentinel"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := bt.Send(&Frame{BPM: 128.2}); err != nil {
		t.Fatal(err)
	}
	if got := read(); got != "sentinel" {
		t.Errorf("unchanged BPM rewrote the file: %q", got)
	}

	if err := bt.Send(&Frame{BPM: 90}); err != nil {
		t.Fatal(err)
	}
	if got := read(); got != "90\n" {
		t.Errorf("file = %q, want %q", got, "90\n")
	}
}

func TestBPMFileTransportMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "bpm")
	if _, err := NewBPMFileTransport(path); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport(0)
	if lt.every != 1 {
		t.Errorf("every = %d, want 1", lt.every)
	}
	if err := lt.Send(&Frame{Bars: [][]float64{{1, 2}}}); err != nil {
		t.Errorf("Send: %v", err)
	}
}

func TestWebSocketTransport(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	defer wst.Close()

	url := "ws://" + wst.Addr() + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	bars := [][]float64{{0.25, 0.5}}
	if err := wst.Send(&Frame{Sequence: 9, BPM: 100, Bars: bars}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// The transport must have encoded the frame already.
	bars[0][0] = 99

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Errorf("message type = %d, want text", msgType)
	}

	var got Frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	if got.Sequence != 9 || got.BPM != 100 || got.Bars[0][0] != 0.25 {
		t.Errorf("frame = %+v", got)
	}
	if !strings.Contains(string(data), `"bars":[[0.25,0.5]]`) {
		t.Errorf("unexpected encoding %s", data)
	}

	if err := wst.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := wst.Send(&Frame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close error = %v, want %v", err, ErrClosed)
	}
}
