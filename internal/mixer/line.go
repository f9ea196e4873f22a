/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mixer sums per-entry sample lines into one device stream.
package mixer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/soundtap/soundtap/internal/player"
)

// lineBufferCap bounds how much undelivered audio a line holds. Writers
// block once it is full, which is what paces the decode loop.
const lineBufferCap = 128 * 1024

// Line is one attachable output slot on a mixer. It implements both
// player.Output and player.Stream: the entry writes S16LE samples in, the
// mixer drains them out.
type Line struct {
	mixer *Mixer

	mu       sync.Mutex
	space    *sync.Cond
	buf      []byte
	enabled  bool
	released bool

	gainBits atomic.Uint64 // float64 bits, applied at mix time
}

func newLine(m *Mixer) *Line {
	l := &Line{mixer: m}
	l.space = sync.NewCond(&l.mu)
	l.gainBits.Store(math.Float64bits(1))
	return l
}

// Enable starts the mixer pulling from this line.
func (l *Line) Enable() {
	l.mu.Lock()
	l.enabled = true
	l.mu.Unlock()
}

// Disable mutes the line without dropping its buffer.
func (l *Line) Disable() {
	l.mu.Lock()
	l.enabled = false
	l.mu.Unlock()
}

// SetGain scales samples pulled from this line by g in [0,1].
func (l *Line) SetGain(g float64) {
	if g < 0 {
		g = 0
	} else if g > 1 {
		g = 1
	}
	l.gainBits.Store(math.Float64bits(g))
}

func (l *Line) gain() float64 {
	return math.Float64frombits(l.gainBits.Load())
}

// Stream returns the line's writable sample stream.
func (l *Line) Stream() player.Stream { return l }

// Release detaches the line from the mixer, dropping buffered audio and
// waking any blocked writer. Writes after Release are discarded.
func (l *Line) Release() {
	l.mu.Lock()
	l.released = true
	l.enabled = false
	l.buf = nil
	l.space.Broadcast()
	l.mu.Unlock()

	l.mixer.remove(l)
}

// Write queues interleaved S16LE samples, blocking while the line buffer is
// full. A released line swallows writes.
func (l *Line) Write(p []byte) (int, error) {
	total := len(p)

	l.mu.Lock()
	defer l.mu.Unlock()
	for len(p) > 0 {
		if l.released {
			return total, nil
		}
		free := lineBufferCap - len(l.buf)
		if free == 0 {
			l.space.Wait()
			continue
		}
		n := len(p)
		if n > free {
			n = free
		}
		l.buf = append(l.buf, p[:n]...)
		p = p[n:]
	}
	return total, nil
}

// Flush drops buffered, not-yet-mixed samples.
func (l *Line) Flush() {
	l.mu.Lock()
	l.buf = l.buf[:0]
	l.space.Broadcast()
	l.mu.Unlock()
}

// pull mixes up to len(out) bytes of this line into out, scaled by the
// line's gain, and reports how many bytes it consumed.
func (l *Line) pull(out []byte) int {
	l.mu.Lock()
	if !l.enabled || len(l.buf) == 0 {
		l.mu.Unlock()
		return 0
	}
	n := len(out)
	if n > len(l.buf) {
		n = len(l.buf)
	}
	n &^= 1 // whole samples only
	src := l.buf[:n]
	g := l.gain()

	for i := 0; i+1 < n; i += 2 {
		s := int16(uint16(src[i]) | uint16(src[i+1])<<8)
		cur := int16(uint16(out[i]) | uint16(out[i+1])<<8)
		m := int32(cur) + int32(float64(s)*g)
		if m > math.MaxInt16 {
			m = math.MaxInt16
		} else if m < math.MinInt16 {
			m = math.MinInt16
		}
		u := uint16(int16(m))
		out[i] = byte(u)
		out[i+1] = byte(u >> 8)
	}

	l.buf = append(l.buf[:0], l.buf[n:]...)
	l.space.Broadcast()
	l.mu.Unlock()
	return n
}
