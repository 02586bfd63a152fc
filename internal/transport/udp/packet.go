// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
Packet layout (big endian)

|<- 4 ->|<--- 8 --->|<- 4 ->|<- 1 ->|<- 2 ->|<---- C * B * 4 ---->|
+-------+-----------+-------+-------+-------+---------------------+
|  seq  | timestamp |  bpm  |   C   |   B   |  bars, channel by   |
| u32   | i64 (ns)  |  f32  |  u8   |  u16  |  channel (f32)      |
+-------+-----------+-------+-------+-------+---------------------+

C is the number of channels and B the number of bars per channel.
*/

// HeaderSize is the size of a packet without bars.
const HeaderSize = 4 + 8 + 4 + 1 + 2

var (
	ErrTooManyChannels = errors.New("too many channels for a packet")
	ErrTooManyBars     = errors.New("too many bars for a packet")
	ErrShortPacket     = errors.New("short packet")
)

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64 // nanoseconds since the epoch
	BPM       float32
	Bars      [][]float32
}

type header struct {
	Sequence  uint32
	Timestamp int64
	BPM       float32
	Channels  uint8
	Bars      uint16
}

// appendPacket packs the header and bars into buf. scratch is reused for
// the float32 conversion and returned.
func appendPacket(buf *bytes.Buffer, scratch []float32, seq uint32, ts int64, bpm float64, bars [][]float64) ([]float32, error) {
	channels := len(bars)
	perChannel := 0
	if channels > 0 {
		perChannel = len(bars[0])
	}
	if channels > math.MaxUint8 {
		return scratch, fmt.Errorf("%w: %d", ErrTooManyChannels, channels)
	}
	if perChannel > math.MaxUint16 {
		return scratch, fmt.Errorf("%w: %d", ErrTooManyBars, perChannel)
	}

	h := header{
		Sequence:  seq,
		Timestamp: ts,
		BPM:       float32(bpm),
		Channels:  uint8(channels),
		Bars:      uint16(perChannel),
	}
	if err := binary.Write(buf, binary.BigEndian, h); err != nil {
		return scratch, err
	}

	scratch = scratch[:0]
	for _, ch := range bars {
		for _, v := range ch {
			scratch = append(scratch, float32(v))
		}
	}
	if err := binary.Write(buf, binary.BigEndian, scratch); err != nil {
		return scratch, err
	}
	return scratch, nil
}

// Decode parses a datagram built by Publisher.
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}

	var h header
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	want := HeaderSize + int(h.Channels)*int(h.Bars)*4
	if len(data) < want {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrShortPacket, len(data), want)
	}

	p := &Packet{
		Sequence:  h.Sequence,
		Timestamp: h.Timestamp,
		BPM:       h.BPM,
		Bars:      make([][]float32, h.Channels),
	}
	for i := range p.Bars {
		p.Bars[i] = make([]float32, h.Bars)
		if err := binary.Read(r, binary.BigEndian, p.Bars[i]); err != nil {
			return nil, fmt.Errorf("read channel %d: %w", i, err)
		}
	}
	return p, nil
}
