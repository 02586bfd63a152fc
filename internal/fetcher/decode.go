// SPDX-License-Identifier: MIT
package fetcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// decoder yields interleaved float32 samples in [-1, 1].
type decoder interface {
	SampleRate() int
	Channels() int
	// ReadSamples returns io.EOF once the stream is exhausted.
	ReadSamples(dst []float32) (int, error)
	Rewind() error
}

// openDecoder picks a decoder from the file extension. The returned file
// must be closed by the caller.
func openDecoder(path string) (decoder, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var dec decoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		dec, err = newWavDecoder(f)
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".ogg", ".oga":
		dec, err = newVorbisDecoder(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return dec, f, nil
}

type wavDecoder struct {
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	scale float32
}

func newWavDecoder(r io.ReadSeeker) (*wavDecoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file", ErrUnsupportedFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate wav PCM data: %w", err)
	}
	return &wavDecoder{
		dec:   dec,
		buf:   &audio.IntBuffer{Data: make([]int, 0, 4096)},
		scale: 1 / float32(int64(1)<<(dec.BitDepth-1)),
	}, nil
}

func (d *wavDecoder) SampleRate() int { return int(d.dec.SampleRate) }
func (d *wavDecoder) Channels() int   { return int(d.dec.NumChans) }
func (d *wavDecoder) Rewind() error   { return d.dec.Rewind() }

func (d *wavDecoder) ReadSamples(dst []float32) (int, error) {
	if cap(d.buf.Data) < len(dst) {
		d.buf.Data = make([]int, len(dst))
	}
	d.buf.Data = d.buf.Data[:len(dst)]

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i, v := range d.buf.Data[:n] {
		dst[i] = float32(v) * d.scale
	}
	return n, nil
}

// mp3Decoder converts go-mp3's 16-bit little-endian stereo stream.
type mp3Decoder struct {
	dec *gomp3.Decoder
	buf []byte
}

func newMP3Decoder(r io.Reader) (*mp3Decoder, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) SampleRate() int { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int   { return 2 }

func (d *mp3Decoder) Rewind() error {
	_, err := d.dec.Seek(0, io.SeekStart)
	return err
}

func (d *mp3Decoder) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	d.buf = d.buf[:need]

	n, err := io.ReadFull(d.dec, d.buf)
	samples := n / 2
	for i := range samples {
		v := int16(uint16(d.buf[2*i]) | uint16(d.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768
	}
	switch {
	case samples > 0:
		return samples, nil
	case err == nil || err == io.ErrUnexpectedEOF:
		return 0, io.EOF
	default:
		return 0, err
	}
}

type vorbisDecoder struct {
	dec *oggvorbis.Reader
}

func newVorbisDecoder(r io.Reader) (*vorbisDecoder, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ogg vorbis: %w", err)
	}
	return &vorbisDecoder{dec: dec}, nil
}

func (d *vorbisDecoder) SampleRate() int { return d.dec.SampleRate() }
func (d *vorbisDecoder) Channels() int   { return d.dec.Channels() }
func (d *vorbisDecoder) Rewind() error   { return d.dec.SetPosition(0) }

// ReadSamples keeps reading until dst is full because the vorbis reader
// returns at most one packet per call.
func (d *vorbisDecoder) ReadSamples(dst []float32) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := d.dec.Read(dst[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to decode ogg vorbis: %w", err)
		}
		if n == 0 {
			break
		}
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}
