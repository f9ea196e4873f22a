/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package codec

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/soundtap/soundtap/internal/content"
)

// wavCodec decodes RIFF/WAVE audio. The wav decoder has no native sample
// seek, so Seek rewinds the stream and skips forward to the target frame.
type wavCodec struct {
	src     content.EncodedStream
	dec     *wav.Decoder
	buf     *audio.IntBuffer
	decoded int64 // frames emitted since the PCM chunk start
}

func newWAVCodec(stream content.EncodedStream) (Codec, error) {
	dec := wav.NewDecoder(stream)
	dec.ReadInfo()
	if !dec.WasPCMAccessed() {
		if err := dec.FwdToPCM(); err != nil {
			return nil, fmt.Errorf("open wav stream: %w", err)
		}
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return nil, fmt.Errorf("open wav stream: missing format header")
	}

	c := &wavCodec{src: stream, dec: dec}
	c.buf = &audio.IntBuffer{
		Format: &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		Data:   make([]int, writeChunkBytes/2),
	}
	return c, nil
}

func (c *wavCodec) Time() (int64, error) {
	return samplesToMs(c.decoded, int(c.dec.SampleRate)), nil
}

func (c *wavCodec) Seek(ms int64) error {
	if _, err := c.src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dec := wav.NewDecoder(c.src)
	dec.ReadInfo()
	if err := dec.FwdToPCM(); err != nil {
		return err
	}
	c.dec = dec
	c.decoded = 0

	// Skip forward to the target frame.
	target := msToSamples(ms, int(dec.SampleRate))
	scratch := &audio.IntBuffer{Format: c.buf.Format, Data: make([]int, writeChunkBytes/2)}
	for c.decoded < target {
		want := (target - c.decoded) * int64(dec.NumChans)
		if want > int64(len(scratch.Data)) {
			want = int64(len(scratch.Data))
		}
		scratch.Data = scratch.Data[:want]
		n, err := dec.PCMBuffer(scratch)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		c.decoded += int64(n) / int64(dec.NumChans)
	}
	return nil
}

func (c *wavCodec) WriteSome(w io.Writer) (int, error) {
	n, err := c.dec.PCMBuffer(c.buf)
	if n > 0 {
		shift := int(c.dec.BitDepth) - 16
		out := make([]byte, n*2)
		for i := 0; i < n; i++ {
			s := c.buf.Data[i]
			if c.dec.BitDepth == 8 {
				s = (s - 128) << 8
			} else if shift > 0 {
				s >>= shift
			} else if shift < 0 {
				s <<= -shift
			}
			out[i*2] = byte(s)
			out[i*2+1] = byte(s >> 8)
		}
		if _, werr := w.Write(out); werr != nil {
			return 0, werr
		}
		c.decoded += int64(n) / int64(c.dec.NumChans)
		return len(out), nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (c *wavCodec) DurationMs() int64 {
	d, err := c.dec.Duration()
	if err != nil {
		return 0
	}
	return d.Milliseconds()
}

func (c *wavCodec) SampleRate() int { return int(c.dec.SampleRate) }
func (c *wavCodec) Channels() int   { return int(c.dec.NumChans) }
func (c *wavCodec) Close() error    { return nil }
