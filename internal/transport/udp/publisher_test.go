// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"audiobars/internal/transport"
)

func TestPacketLayout(t *testing.T) {
	var buf bytes.Buffer
	bars := [][]float64{{0.5, 1}, {0.25, 2}}
	if _, err := appendPacket(&buf, nil, 7, 42, 128.4, bars); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	if want := HeaderSize + 4*4; len(data) != want {
		t.Fatalf("packet has %d bytes, want %d", len(data), want)
	}
	// seq
	if !bytes.Equal(data[:4], []byte{0, 0, 0, 7}) {
		t.Errorf("sequence bytes = %v", data[:4])
	}
	// channels and bars per channel follow the bpm
	if data[16] != 2 || data[17] != 0 || data[18] != 2 {
		t.Errorf("channel/bar count bytes = %v", data[16:19])
	}
	// first bar of the first channel: 0.5 = 0x3f000000
	if !bytes.Equal(data[19:23], []byte{0x3f, 0, 0, 0}) {
		t.Errorf("first bar bytes = %x", data[19:23])
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bars := [][]float64{{0, 0.5, 1}, {1, 0.5, 0}}
	if _, err := appendPacket(&buf, nil, math.MaxUint32, -1, 95, bars); err != nil {
		t.Fatal(err)
	}

	p, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Sequence != math.MaxUint32 || p.Timestamp != -1 || p.BPM != 95 {
		t.Errorf("header = %d, %d, %v", p.Sequence, p.Timestamp, p.BPM)
	}
	if len(p.Bars) != 2 || p.Bars[1][0] != 1 || p.Bars[0][1] != 0.5 {
		t.Errorf("bars = %v", p.Bars)
	}
}

func TestDecodeShortPacket(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderSize-1)); !errors.Is(err, ErrShortPacket) {
		t.Errorf("Decode(short header) error = %v, want %v", err, ErrShortPacket)
	}

	var buf bytes.Buffer
	if _, err := appendPacket(&buf, nil, 1, 1, 1, [][]float64{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]
	if _, err := Decode(truncated); !errors.Is(err, ErrShortPacket) {
		t.Errorf("Decode(truncated) error = %v, want %v", err, ErrShortPacket)
	}
}

func TestTooManyChannels(t *testing.T) {
	var buf bytes.Buffer
	bars := make([][]float64, 256)
	if _, err := appendPacket(&buf, nil, 1, 1, 1, bars); !errors.Is(err, ErrTooManyChannels) {
		t.Errorf("error = %v, want %v", err, ErrTooManyChannels)
	}
}

func TestPublisherSendsFrames(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	defer conn.Close()

	pub, err := Dial(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	frame := &transport.Frame{
		Sequence:  3,
		Timestamp: time.Unix(0, 1234),
		BPM:       120,
		Bars:      [][]float64{{0.1, 0.2, 0.3, 0.4}},
	}
	if err := pub.Send(frame); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data := make([]byte, 1500)
	n, _, err := conn.ReadFromUDP(data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	p, err := Decode(data[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Sequence != 3 || p.Timestamp != 1234 || p.BPM != 120 || len(p.Bars[0]) != 4 {
		t.Errorf("packet = %+v", p)
	}

	if err := pub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := pub.Send(frame); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Send after Close error = %v, want %v", err, transport.ErrClosed)
	}
}

func TestNewPublisherRequiresSender(t *testing.T) {
	if _, err := NewPublisher(nil); err == nil {
		t.Error("expected an error for a nil sender")
	}
}
