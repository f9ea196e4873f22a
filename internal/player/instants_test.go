/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import "testing"

func TestRegistryPumpsInAscendingOrder(t *testing.T) {
	var r instantRegistry
	r.put(1000, InstantPreload)
	r.put(3000, InstantEnd)
	r.put(2000, InstantStartNext)

	var fired []InstantID
	r.pump(2500, func(id InstantID) { fired = append(fired, id) })

	if len(fired) != 2 || fired[0] != InstantPreload || fired[1] != InstantStartNext {
		t.Fatalf("fired %v, want [preload start-next]", fired)
	}
	if r.empty() {
		t.Fatal("the 3000ms instant must still be pending")
	}

	fired = fired[:0]
	r.pump(3000, func(id InstantID) { fired = append(fired, id) })
	if len(fired) != 1 || fired[0] != InstantEnd {
		t.Fatalf("fired %v, want [end]", fired)
	}
	if !r.empty() {
		t.Fatal("registry should be drained")
	}
}

func TestRegistrySameKeyLastWriteWins(t *testing.T) {
	var r instantRegistry
	r.put(1000, InstantPreload)
	r.put(1000, InstantEnd)

	var fired []InstantID
	r.pump(1000, func(id InstantID) { fired = append(fired, id) })

	if len(fired) != 1 || fired[0] != InstantEnd {
		t.Fatalf("fired %v, want exactly [end]", fired)
	}
}

func TestRegistryFiresEachInstantOnce(t *testing.T) {
	var r instantRegistry
	r.put(500, InstantPreload)

	count := 0
	r.pump(600, func(InstantID) { count++ })
	r.pump(700, func(InstantID) { count++ })

	if count != 1 {
		t.Fatalf("instant fired %d times", count)
	}
}

func TestRegistryPumpSeesInstantsScheduledByCallbacks(t *testing.T) {
	var r instantRegistry
	r.put(100, InstantPreload)

	var fired []InstantID
	r.pump(200, func(id InstantID) {
		fired = append(fired, id)
		if id == InstantPreload {
			r.put(150, InstantStartNext)
		}
	})

	if len(fired) != 2 || fired[1] != InstantStartNext {
		t.Fatalf("fired %v, want the callback-scheduled instant too", fired)
	}
}

func TestRegistryDoesNotFireFutureInstants(t *testing.T) {
	var r instantRegistry
	r.put(5000, InstantEnd)

	r.pump(4999, func(InstantID) { t.Fatal("future instant fired") })
	if r.empty() {
		t.Fatal("future instant must stay pending")
	}
}
