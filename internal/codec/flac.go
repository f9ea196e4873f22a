/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package codec

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/soundtap/soundtap/internal/content"
)

// flacCodec decodes FLAC audio frame by frame. Samples above 16-bit depth
// are truncated to 16-bit on output.
type flacCodec struct {
	stream  *flac.Stream
	decoded int64 // frames emitted so far
	pending []byte
}

func newFLACCodec(stream content.EncodedStream) (Codec, error) {
	s, err := flac.NewSeek(stream)
	if err != nil {
		return nil, fmt.Errorf("open flac stream: %w", err)
	}
	return &flacCodec{stream: s}, nil
}

func (c *flacCodec) Time() (int64, error) {
	return samplesToMs(c.decoded, int(c.stream.Info.SampleRate)), nil
}

func (c *flacCodec) Seek(ms int64) error {
	sample := msToSamples(ms, int(c.stream.Info.SampleRate))
	if sample < 0 {
		sample = 0
	}
	actual, err := c.stream.Seek(uint64(sample))
	if err != nil {
		return err
	}
	c.decoded = int64(actual)
	c.pending = nil
	return nil
}

func (c *flacCodec) WriteSome(w io.Writer) (int, error) {
	if len(c.pending) == 0 {
		frame, err := c.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, err
		}

		nch := len(frame.Subframes)
		if nch == 0 {
			return 0, nil
		}
		blockSize := len(frame.Subframes[0].Samples)
		shift := int(c.stream.Info.BitsPerSample) - 16

		out := make([]byte, 0, blockSize*nch*2)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < nch; ch++ {
				s := frame.Subframes[ch].Samples[i]
				if shift > 0 {
					s >>= shift
				} else if shift < 0 {
					s <<= -shift
				}
				out = append(out, byte(s), byte(s>>8))
			}
		}
		c.pending = out
		c.decoded += int64(blockSize)
	}

	n := len(c.pending)
	if n > writeChunkBytes {
		n = writeChunkBytes
	}
	if _, err := w.Write(c.pending[:n]); err != nil {
		return 0, err
	}
	c.pending = c.pending[n:]
	return n, nil
}

func (c *flacCodec) DurationMs() int64 {
	if c.stream.Info.NSamples == 0 {
		return 0
	}
	return samplesToMs(int64(c.stream.Info.NSamples), int(c.stream.Info.SampleRate))
}

func (c *flacCodec) SampleRate() int { return int(c.stream.Info.SampleRate) }
func (c *flacCodec) Channels() int   { return int(c.stream.Info.NChannels) }
func (c *flacCodec) Close() error    { return c.stream.Close() }
