/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"sync"

	"github.com/rs/zerolog"
)

// Mixer sums the enabled lines into a single pull-based S16LE stream. Two
// lines active at once is the normal crossfade overlap; more is allowed.
type Mixer struct {
	rate     int
	channels int
	logger   zerolog.Logger

	mu    sync.Mutex
	lines []*Line
}

// New creates a mixer producing interleaved S16LE at the given rate and
// channel count.
func New(rate, channels int, logger zerolog.Logger) *Mixer {
	return &Mixer{
		rate:     rate,
		channels: channels,
		logger:   logger.With().Str("component", "mixer").Logger(),
	}
}

// SampleRate returns the mixer's output sample rate.
func (m *Mixer) SampleRate() int { return m.rate }

// Channels returns the mixer's output channel count.
func (m *Mixer) Channels() int { return m.channels }

// NewLine adds a fresh output slot to the mix. The line starts disabled;
// attaching it to an entry enables it.
func (m *Mixer) NewLine() *Line {
	l := newLine(m)
	m.mu.Lock()
	m.lines = append(m.lines, l)
	m.mu.Unlock()
	return l
}

func (m *Mixer) remove(l *Line) {
	m.mu.Lock()
	for i, candidate := range m.lines {
		if candidate == l {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// Read implements io.Reader for the audio device. It always fills p,
// emitting silence where no line has data, so the device never starves.
func (m *Mixer) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}

	m.mu.Lock()
	lines := append([]*Line(nil), m.lines...)
	m.mu.Unlock()

	for _, l := range lines {
		l.pull(p)
	}
	return len(p), nil
}
