/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player owns the per-track playback lifecycle: loading, decoding,
// timing and delivery of one content item to an output sink.
package player

import "github.com/soundtap/soundtap/internal/content"

// InstantID identifies a time-keyed callback registered on an entry.
type InstantID int

const (
	// InstantPreload tells the controller it is time to start loading the
	// next track.
	InstantPreload InstantID = iota + 1
	// InstantStartNext tells the controller to begin the next track's
	// playback (crossfade overlap or gapless hand-off).
	InstantStartNext
	// InstantEnd marks the point where the current track is considered over
	// for scheduling purposes.
	InstantEnd
)

// Listener receives entry lifecycle notifications. Every call is made
// synchronously from the entry's own goroutine: implementations must not
// block, as that directly delays audio delivery.
type Listener interface {
	// StartedLoading fires when the entry begins resolving its content.
	StartedLoading(entry *Entry)

	// LoadingError fires when the load failed. retried tells whether this
	// entry was already a retry of a previous failed attempt.
	LoadingError(entry *Entry, err error, retried bool)

	// FinishedLoading fires when content and decoder are ready.
	FinishedLoading(entry *Entry, meta Metadata)

	// PlaybackError fires on an unrecoverable decode or I/O fault, unless
	// the entry was already closed when the fault hit.
	PlaybackError(entry *Entry, err error)

	// PlaybackEnded fires when the run loop exits, for every exit path
	// except the playback-error path above.
	PlaybackEnded(entry *Entry)

	// PlaybackHalted fires when the content stream stalls mid-read.
	PlaybackHalted(entry *Entry, chunk int)

	// PlaybackResumed fires when a previously reported stall recovers,
	// with the stall duration in milliseconds.
	PlaybackResumed(entry *Entry, chunk int, diffMs int64)

	// InstantReached fires when a scheduled (or immediately due) instant is
	// crossed, with the exact playback time observed.
	InstantReached(entry *Entry, id InstantID, exactMs int64)

	// MetadataFor is queried once during load to seed the crossfade engine
	// with string-keyed metadata for the content.
	MetadataFor(id content.ID) map[string]string
}

// Metadata is the duration-bearing wrapper around whichever of track or
// episode metadata the loader resolved. Immutable once built.
type Metadata struct {
	Track      *content.TrackMeta
	Episode    *content.EpisodeMeta
	durationMs int64
}

// Name returns the display name of the content.
func (m Metadata) Name() string {
	if m.Track != nil {
		return m.Track.Name
	}
	if m.Episode != nil {
		return m.Episode.Name
	}
	return ""
}

// DurationMs returns the content duration in milliseconds, 0 when unknown.
func (m Metadata) DurationMs() int64 { return m.durationMs }
