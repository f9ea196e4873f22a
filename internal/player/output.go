/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import "io"

// Stream is the writable sample stream of an output sink. Writes carry
// interleaved S16LE audio.
type Stream interface {
	io.Writer

	// Flush drops any buffered, not-yet-audible samples so a seek takes
	// effect immediately instead of after the buffer drains.
	Flush()
}

// Output is a toggleable audio sink an entry attaches to. Implementations
// must tolerate Disable and Release being called more than once.
type Output interface {
	// Enable starts consuming the stream.
	Enable()

	// Disable stops consuming the stream.
	Disable()

	// SetGain scales subsequent samples by g in [0,1].
	SetGain(g float64)

	// Stream returns the sink's writable sample stream.
	Stream() Stream

	// Release detaches the sink from its mixer, dropping buffered audio.
	// A released sink must not be reused.
	Release()
}
