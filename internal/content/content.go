/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package content resolves content identifiers to decodable audio streams.
package content

import (
	"io"
	"path"
	"strings"
)

// ID identifies one piece of audio content. It is either a plain path
// relative to the media root, a "file://" URL or an "s3://bucket/key" URL.
type ID string

// String returns the identifier as given.
func (id ID) String() string { return string(id) }

// Quality expresses the caller's preferred stream quality. Loaders that only
// have one rendition of the content may ignore it.
type Quality int

const (
	QualityLow Quality = iota
	QualityNormal
	QualityHigh
)

// Encoding tags the codec of an encoded stream.
type Encoding string

const (
	EncodingVorbis  Encoding = "vorbis"
	EncodingMP3     Encoding = "mp3"
	EncodingFLAC    Encoding = "flac"
	EncodingWAV     Encoding = "wav"
	EncodingUnknown Encoding = ""
)

// EncodingForName guesses the encoding from a file name or object key.
func EncodingForName(name string) Encoding {
	switch strings.ToLower(path.Ext(name)) {
	case ".ogg", ".oga":
		return EncodingVorbis
	case ".mp3":
		return EncodingMP3
	case ".flac":
		return EncodingFLAC
	case ".wav", ".wave":
		return EncodingWAV
	default:
		return EncodingUnknown
	}
}

// EncodedStream is a seekable encoded audio stream plus its codec tag.
type EncodedStream interface {
	io.ReadSeeker
	Encoding() Encoding
	Size() int64
}

// TrackMeta describes music-track shaped content.
type TrackMeta struct {
	Name       string
	Artist     string
	Album      string
	DurationMs int64
}

// EpisodeMeta describes podcast-episode shaped content.
type EpisodeMeta struct {
	Name       string
	Show       string
	DurationMs int64
}

// Metrics captures how a load went, for the playback ledger.
type Metrics struct {
	Source    string // "file" or "s3"
	SizeBytes int64
	FetchMs   int64
	Preloaded bool
}

// LoadedStream is what a Loader hands back on success.
type LoadedStream struct {
	Stream  EncodedStream
	Track   *TrackMeta
	Episode *EpisodeMeta
	Metrics Metrics
}

// DurationMs returns the metadata duration, or 0 when unknown.
func (s *LoadedStream) DurationMs() int64 {
	if s.Track != nil {
		return s.Track.DurationMs
	}
	if s.Episode != nil {
		return s.Episode.DurationMs
	}
	return 0
}

// HaltListener is told when the underlying stream stalls while fetching data
// and when it recovers. Times are wall-clock milliseconds.
type HaltListener interface {
	StreamReadHalted(chunk int, at int64)
	StreamReadResumed(chunk int, at int64)
}

// Loader resolves a content identifier to a decodable stream. A nil halt
// listener disables stall reporting. Load blocks until the stream is usable
// or one of the typed errors in this package is returned.
type Loader interface {
	Load(id ID, quality Quality, preload bool, halt HaltListener) (*LoadedStream, error)
}
