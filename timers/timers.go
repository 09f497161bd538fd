// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timers

import (
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/heap"
	"github.com/ava-labs/avalanchego/utils/timer"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"go.uber.org/atomic"
)

// Handle is a scheduled callback that can be cancelled. Cancel is
// idempotent and safe to call concurrently with the callback firing; a
// callback that was already dispatched when Cancel is called may still
// run.
type Handle interface {
	Cancel()
}

// Scheduler schedules [fire] to run on an unspecified goroutine at or
// after [at].
type Scheduler interface {
	Schedule(at time.Time, fire func()) Handle
}

var (
	_ Scheduler = (*Dispatcher)(nil)
	_ Handle    = (*Alarm)(nil)
)

// Dispatcher implements [Scheduler] with a single timer armed to the
// earliest outstanding deadline. Alarms fire on the dispatch goroutine.
type Dispatcher struct {
	clock  mockable.Clock
	timer  *timer.Timer
	nextID atomic.Uint64

	l      sync.Mutex
	alarms heap.Map[uint64, *Alarm]
}

// Alarm is a pending [Dispatcher] callback.
type Alarm struct {
	d    *Dispatcher
	id   uint64
	at   time.Time
	fire func()
}

// NewDispatcher returns a [Dispatcher]. The caller must run [Dispatcher.Run]
// (typically on its own goroutine) before any alarm can fire.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		alarms: heap.NewMap[uint64, *Alarm](func(a, b *Alarm) bool {
			return a.at.Before(b.at)
		}),
	}
	d.timer = timer.NewTimer(d.fireDue)
	return d
}

// Run dispatches alarms until [Dispatcher.Stop] is called. This blocks.
func (d *Dispatcher) Run() {
	d.timer.Dispatch()
}

// Stop terminates the dispatch loop. Outstanding alarms never fire.
func (d *Dispatcher) Stop() {
	d.timer.Stop()
}

// Schedule registers [fire] to run at or after [at].
func (d *Dispatcher) Schedule(at time.Time, fire func()) Handle {
	a := &Alarm{
		d:    d,
		id:   d.nextID.Inc(),
		at:   at,
		fire: fire,
	}

	d.l.Lock()
	d.alarms.Push(a.id, a)
	first, _, _ := d.alarms.Peek()
	d.l.Unlock()

	// Re-arm only if this alarm became the earliest deadline.
	if first == a.id {
		d.timer.SetTimeoutIn(max(0, at.Sub(d.clock.Time())))
	}
	return a
}

// Cancel removes a from its dispatcher. Once Cancel returns, a will not
// fire unless it was already being dispatched.
func (a *Alarm) Cancel() {
	a.d.l.Lock()
	a.d.alarms.Remove(a.id)
	a.d.l.Unlock()
}

// Len returns the number of pending alarms.
func (d *Dispatcher) Len() int {
	d.l.Lock()
	defer d.l.Unlock()

	return d.alarms.Len()
}

func (d *Dispatcher) fireDue() {
	now := d.clock.Time()

	var due []*Alarm
	d.l.Lock()
	for {
		_, a, ok := d.alarms.Peek()
		if !ok {
			break
		}
		if a.at.After(now) {
			d.timer.SetTimeoutIn(a.at.Sub(now))
			break
		}
		d.alarms.Pop()
		due = append(due, a)
	}
	d.l.Unlock()

	for _, a := range due {
		a.fire()
	}
}
