/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package codec

import (
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/soundtap/soundtap/internal/content"
)

// mp3Codec decodes MPEG layer 3 audio. go-mp3 always emits 16-bit stereo at
// the stream's sample rate, so no sample conversion is needed.
type mp3Codec struct {
	dec *mp3.Decoder
	buf []byte
}

const mp3BytesPerFrame = 4 // 2 channels x 16 bit

func newMP3Codec(stream content.EncodedStream) (Codec, error) {
	dec, err := mp3.NewDecoder(stream)
	if err != nil {
		return nil, fmt.Errorf("open mp3 stream: %w", err)
	}
	return &mp3Codec{dec: dec, buf: make([]byte, writeChunkBytes)}, nil
}

func (c *mp3Codec) Time() (int64, error) {
	pos, err := c.dec.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, ErrTimeUnavailable
	}
	return samplesToMs(pos/mp3BytesPerFrame, c.dec.SampleRate()), nil
}

func (c *mp3Codec) Seek(ms int64) error {
	offset := msToSamples(ms, c.dec.SampleRate()) * mp3BytesPerFrame
	_, err := c.dec.Seek(offset, io.SeekStart)
	return err
}

func (c *mp3Codec) WriteSome(w io.Writer) (int, error) {
	n, err := c.dec.Read(c.buf)
	if n > 0 {
		if _, werr := w.Write(c.buf[:n]); werr != nil {
			return 0, werr
		}
		return n, nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (c *mp3Codec) DurationMs() int64 {
	length := c.dec.Length()
	if length <= 0 {
		return 0
	}
	return samplesToMs(length/mp3BytesPerFrame, c.dec.SampleRate())
}

func (c *mp3Codec) SampleRate() int { return c.dec.SampleRate() }
func (c *mp3Codec) Channels() int   { return 2 }
func (c *mp3Codec) Close() error    { return nil }
