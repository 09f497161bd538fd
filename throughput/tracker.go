// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package throughput

import (
	"sync"

	"github.com/ava-labs/avalanchego/utils/set"
)

// Tracker tallies per-item outcomes across producer and consumer
// goroutines. Delivered detects duplicate deliveries, which would mean
// the queue matched one item to two consumers.
type Tracker struct {
	l sync.Mutex

	delivered  set.Set[uint64]
	duplicates int
	expired    int
	refused    int
	puts       int
}

func NewTracker(expect int) *Tracker {
	return &Tracker{delivered: set.NewSet[uint64](expect)}
}

func (t *Tracker) Put() {
	t.l.Lock()
	defer t.l.Unlock()

	t.puts++
}

func (t *Tracker) Refused() {
	t.l.Lock()
	defer t.l.Unlock()

	t.refused++
}

func (t *Tracker) Delivered(id uint64) {
	t.l.Lock()
	defer t.l.Unlock()

	if t.delivered.Contains(id) {
		t.duplicates++
		return
	}
	t.delivered.Add(id)
}

func (t *Tracker) Expired() {
	t.l.Lock()
	defer t.l.Unlock()

	t.expired++
}

// Summary is a point-in-time copy of the tracker's tallies.
type Summary struct {
	Puts       int
	Refused    int
	Delivered  int
	Duplicates int
	Expired    int
}

func (t *Tracker) Summary() Summary {
	t.l.Lock()
	defer t.l.Unlock()

	return Summary{
		Puts:       t.puts,
		Refused:    t.refused,
		Delivered:  t.delivered.Len(),
		Duplicates: t.duplicates,
		Expired:    t.expired,
	}
}
