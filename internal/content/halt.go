/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"io"
	"time"
)

// defaultHaltThreshold is how long a chunk read may block before the stream
// is considered halted.
const defaultHaltThreshold = 500 * time.Millisecond

// haltReader wraps a reader and reports to a HaltListener when a single
// chunk read blocks for longer than the threshold, then again when the read
// finally returns. Chunks are numbered from 0 in read order.
type haltReader struct {
	r         io.Reader
	listener  HaltListener
	threshold time.Duration
	chunk     int
}

func newHaltReader(r io.Reader, listener HaltListener, threshold time.Duration) *haltReader {
	if threshold <= 0 {
		threshold = defaultHaltThreshold
	}
	return &haltReader{r: r, listener: listener, threshold: threshold}
}

func (h *haltReader) Read(p []byte) (int, error) {
	if h.listener == nil {
		return h.r.Read(p)
	}

	chunk := h.chunk
	h.chunk++

	timer := time.AfterFunc(h.threshold, func() {
		h.listener.StreamReadHalted(chunk, time.Now().UnixMilli())
	})

	n, err := h.r.Read(p)

	if !timer.Stop() {
		// The halt already fired; the read completing is the resume.
		h.listener.StreamReadResumed(chunk, time.Now().UnixMilli())
	}
	return n, err
}
