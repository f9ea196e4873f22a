/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package codec

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/soundtap/soundtap/internal/content"
)

// vorbisCodec decodes Ogg Vorbis audio, the primary encoding of the
// streaming catalog.
type vorbisCodec struct {
	r   *oggvorbis.Reader
	buf []float32
	out []byte
}

func newVorbisCodec(stream content.EncodedStream) (Codec, error) {
	r, err := oggvorbis.NewReader(stream)
	if err != nil {
		return nil, fmt.Errorf("open vorbis stream: %w", err)
	}
	samples := writeChunkBytes / 2
	return &vorbisCodec{
		r:   r,
		buf: make([]float32, samples),
		out: make([]byte, writeChunkBytes),
	}, nil
}

func (c *vorbisCodec) Time() (int64, error) {
	return samplesToMs(c.r.Position(), c.r.SampleRate()), nil
}

func (c *vorbisCodec) Seek(ms int64) error {
	return c.r.SetPosition(msToSamples(ms, c.r.SampleRate()))
}

func (c *vorbisCodec) WriteSome(w io.Writer) (int, error) {
	n, err := c.r.Read(c.buf)
	if n > 0 {
		out := c.out[:n*2]
		for i := 0; i < n; i++ {
			s := c.buf[i]
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			v := int16(s * 32767)
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		}
		if _, werr := w.Write(out); werr != nil {
			return 0, werr
		}
		return len(out), nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (c *vorbisCodec) DurationMs() int64 {
	length := c.r.Length()
	if length <= 0 {
		return 0
	}
	return samplesToMs(length, c.r.SampleRate())
}

func (c *vorbisCodec) SampleRate() int { return c.r.SampleRate() }
func (c *vorbisCodec) Channels() int   { return c.r.Channels() }
func (c *vorbisCodec) Close() error    { return nil }
