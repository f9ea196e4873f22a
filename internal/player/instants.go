/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"sort"
	"sync"
)

type instant struct {
	whenMs int64
	id     InstantID
}

// instantRegistry is an ordered time→callback registry. Keys are unique:
// scheduling a second callback at the exact same millisecond replaces the
// first (last write wins).
type instantRegistry struct {
	mu      sync.Mutex
	pending []instant // sorted ascending by whenMs
}

// put inserts (whenMs → id), overwriting any entry at the same key.
func (r *instantRegistry) put(whenMs int64, id InstantID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.pending), func(i int) bool {
		return r.pending[i].whenMs >= whenMs
	})
	if i < len(r.pending) && r.pending[i].whenMs == whenMs {
		r.pending[i].id = id
		return
	}
	r.pending = append(r.pending, instant{})
	copy(r.pending[i+1:], r.pending[i:])
	r.pending[i] = instant{whenMs: whenMs, id: id}
}

// pump fires every instant due at nowMs, in ascending time order, each at
// most once. Callbacks run on the calling goroutine and may mutate entry
// state (detach the output, close the entry, schedule further instants), so
// the head is re-checked after every firing and the lock is not held across
// the callback.
func (r *instantRegistry) pump(nowMs int64, fire func(id InstantID)) {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 || r.pending[0].whenMs > nowMs {
			r.mu.Unlock()
			return
		}
		head := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()

		fire(head.id)
	}
}

// empty reports whether nothing is scheduled.
func (r *instantRegistry) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) == 0
}
