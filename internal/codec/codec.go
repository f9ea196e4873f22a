/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package codec turns encoded audio streams into interleaved S16LE samples.
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/soundtap/soundtap/internal/content"
)

// ErrTimeUnavailable is returned by Time when the decoder cannot report a
// playback position. Callers should stop asking: the condition does not
// clear for the life of the decoder.
var ErrTimeUnavailable = errors.New("codec: playback time unavailable")

// ErrUnsupportedEncoding is returned by New for an encoding tag no decoder
// handles.
var ErrUnsupportedEncoding = errors.New("codec: unsupported encoding")

// writeChunkBytes is how much PCM a single WriteSome call produces at most.
const writeChunkBytes = 4096

// Codec decodes one encoded stream. Implementations are not safe for
// concurrent use; the playback run loop is the only caller.
type Codec interface {
	// Time returns the current playback position in milliseconds, or
	// ErrTimeUnavailable.
	Time() (int64, error)

	// Seek moves the decode position to the given millisecond offset.
	Seek(ms int64) error

	// WriteSome decodes a small amount of audio and writes it to w as
	// interleaved S16LE. It returns the bytes written, or (0, io.EOF) once
	// the stream is exhausted.
	WriteSome(w io.Writer) (int, error)

	// DurationMs is the total stream duration, 0 when unknown.
	DurationMs() int64

	SampleRate() int
	Channels() int

	Close() error
}

// New selects a decoder implementation by the stream's encoding tag.
// An unrecognized tag is a construction-time error, never a runtime
// surprise.
func New(stream content.EncodedStream) (Codec, error) {
	switch stream.Encoding() {
	case content.EncodingVorbis:
		return newVorbisCodec(stream)
	case content.EncodingMP3:
		return newMP3Codec(stream)
	case content.EncodingFLAC:
		return newFLACCodec(stream)
	case content.EncodingWAV:
		return newWAVCodec(stream)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, stream.Encoding())
	}
}

// samplesToMs converts a frame count at the given rate to milliseconds.
func samplesToMs(samples int64, rate int) int64 {
	if rate <= 0 {
		return 0
	}
	return samples * 1000 / int64(rate)
}

// msToSamples converts milliseconds to a frame count at the given rate.
func msToSamples(ms int64, rate int) int64 {
	return ms * int64(rate) / 1000
}
