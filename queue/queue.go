// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/foursquare/libkestrel/future"
	"github.com/foursquare/libkestrel/mpsc"
	"github.com/foursquare/libkestrel/timers"
	"github.com/foursquare/libkestrel/vset"
)

// FullPolicy selects what [Queue.Put] does once the queue holds maxItems.
type FullPolicy uint8

const (
	// RefusePuts rejects puts at capacity.
	RefusePuts FullPolicy = iota
	// DropOldest accepts every put, discarding the oldest buffered items
	// as needed to respect the capacity bound.
	DropOldest
)

func (p FullPolicy) String() string {
	switch p {
	case RefusePuts:
		return "refuse-puts"
	case DropOldest:
		return "drop-oldest"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

var ErrInvalidPolicy = errors.New("invalid full policy")

// Queue hands items from producers to consumers without blocking either
// side on a lock. Producers call [Queue.Put]; consumers register interest
// with [Queue.Get]/[Queue.GetUntil] (asynchronous) or [Queue.Poll]/
// [Queue.PollIf] (synchronous, immediate-or-miss). Matching runs inline
// on caller goroutines, serialized by an atomic trigger counter, so no
// goroutine ever parks waiting for another.
//
// Items are delivered in insertion order to live consumers in their
// registration order, except that a poller whose predicate rejects the
// head steps aside without consuming it.
type Queue[T any] struct {
	log     logging.Logger
	metrics *metrics
	sched   timers.Scheduler

	maxItems int64 // <= 0 means unbounded
	policy   FullPolicy

	// items and consumers are only ever popped by the goroutine holding
	// the trigger, which serializes the consumer role.
	items     *mpsc.Queue[T]
	consumers *mpsc.Queue[*consumer[T]]

	// A request is eligible to be matched only while its id is in the
	// set for its kind. Removal is the linearization point for settling
	// a request; the remover owns the result cell.
	waiters *vset.Set[*future.Future[T]]
	pollers *vset.Set[*future.Future[T]]

	size     atomic.Int64
	triggers atomic.Int64
	nextID   atomic.Uint64
}

// consumer is a pending request in the registry. A nil accept marks a
// waiter; a non-nil accept marks a poller.
type consumer[T any] struct {
	id     uint64
	fut    *future.Future[T]
	accept func(T) bool
	alarm  timers.Handle
}

// New returns a [Queue] bounded to [maxItems] ([maxItems] <= 0 means
// unbounded) governed by [policy]. Deadlines passed to [Queue.GetUntil]
// are scheduled on [sched].
func New[T any](
	log logging.Logger,
	registerer prometheus.Registerer,
	maxItems int,
	policy FullPolicy,
	sched timers.Scheduler,
) (*Queue[T], error) {
	if policy != RefusePuts && policy != DropOldest {
		return nil, ErrInvalidPolicy
	}
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Queue[T]{
		log:       log,
		metrics:   m,
		sched:     sched,
		maxItems:  int64(maxItems),
		policy:    policy,
		items:     mpsc.New[T](),
		consumers: mpsc.New[*consumer[T]](),
		waiters:   vset.New[*future.Future[T]](16),
		pollers:   vset.New[*future.Future[T]](16),
	}, nil
}

// NewUnbounded returns an unbounded [Queue].
func NewUnbounded[T any](
	log logging.Logger,
	registerer prometheus.Registerer,
	sched timers.Scheduler,
) (*Queue[T], error) {
	return New[T](log, registerer, 0, RefusePuts, sched)
}

// Put appends [item] and reports whether it was accepted. Put never
// blocks. Under [RefusePuts] the capacity check is a racy read of the
// size estimate; concurrent puts near the boundary may transiently admit
// more than maxItems items.
func (q *Queue[T]) Put(item T) bool {
	if q.maxItems > 0 && q.policy == RefusePuts && q.size.Load() >= q.maxItems {
		q.metrics.putsRefused.Inc()
		return false
	}
	q.items.Push(item)
	q.metrics.size.Set(float64(q.size.Inc()))
	q.metrics.puts.Inc()
	q.handoff()
	return true
}

// Len returns a best-effort snapshot of the number of buffered items.
func (q *Queue[T]) Len() int {
	return int(q.size.Load())
}

// Get registers a waiter for the next available item. The returned cell
// resolves with the item once one is matched; it stays pending forever if
// no item ever arrives. Get never blocks.
func (q *Queue[T]) Get() *future.Future[T] {
	return q.get(time.Time{})
}

// GetUntil is [Queue.Get] bounded by [deadline]: if no item is matched by
// then, the cell resolves empty.
func (q *Queue[T]) GetUntil(deadline time.Time) *future.Future[T] {
	return q.get(deadline)
}

func (q *Queue[T]) get(deadline time.Time) *future.Future[T] {
	c := &consumer[T]{
		id:  q.nextID.Inc(),
		fut: future.New[T](),
	}
	q.waiters.Add(c.id, c.fut)
	if !deadline.IsZero() {
		id, fut := c.id, c.fut
		c.alarm = q.sched.Schedule(deadline, func() {
			// Whoever removes the id from the waiter set settles the
			// cell; losing the race here means hand-off already matched
			// this waiter.
			if _, ok := q.waiters.Remove(id); ok {
				q.metrics.expired.Inc()
				fut.FulfillEmpty()
			}
		})
	}
	q.consumers.Push(c)
	q.metrics.waitersAdded.Inc()
	if q.size.Load() > 0 {
		// An item may already be buffered with no further put coming to
		// trigger matching.
		q.handoff()
	}
	return c.fut
}

// Poll removes and returns the head item if one is available right now.
func (q *Queue[T]) Poll() (T, bool) {
	return q.PollIf(func(T) bool { return true })
}

// PollIf removes and returns the head item if one is available right now
// and [accept] returns true for it. On a predicate miss the item is left
// in place for the next consumer. PollIf blocks the caller, but only for
// the hand-off pass it runs inline.
func (q *Queue[T]) PollIf(accept func(T) bool) (T, bool) {
	if q.size.Load() == 0 {
		return *new(T), false
	}
	c := &consumer[T]{
		id:     q.nextID.Inc(),
		fut:    future.New[T](),
		accept: accept,
	}
	q.pollers.Add(c.id, c.fut)
	q.consumers.Push(c)
	q.metrics.pollersAdded.Inc()
	q.handoff()
	return c.fut.Wait()
}

// String returns an approximate diagnostic snapshot.
func (q *Queue[T]) String() string {
	return fmt.Sprintf(
		"Queue(policy=%s maxItems=%d items=%d waiters=%d pollers=%d)",
		q.policy, q.maxItems, q.size.Load(), q.waiters.Len(), q.pollers.Len(),
	)
}

// handoff requests a matching pass. The trigger counter is an elastic
// ticket: the goroutine that raises it from zero executes passes for
// every ticket taken while it works, so matching is serialized without
// any goroutine parking. Everyone else just takes a ticket and leaves.
func (q *Queue[T]) handoff() {
	if q.triggers.Inc() != 1 {
		return
	}
	for {
		q.handoffOne()
		if q.triggers.Dec() == 0 {
			return
		}
	}
}

// handoffOne runs one matching pass. This, trim, and drainPollers are
// the only code that removes entries from the item store or the consumer
// registry, and only ever run on the goroutine holding the trigger.
func (q *Queue[T]) handoffOne() {
	q.metrics.handoffPasses.Inc()

	if q.policy == DropOldest && q.maxItems > 0 {
		q.trim()
	}

	head, ok := q.items.Peek()
	if !ok {
		// An empty queue can never satisfy a pending poll.
		q.drainPollers()
		return
	}

	for {
		c, ok := q.consumers.Pop()
		if !ok {
			// No live consumer; leave the item buffered.
			return
		}
		if c.accept != nil {
			if _, ok := q.pollers.Remove(c.id); !ok {
				// Already settled; skip the dead entry.
				continue
			}
			if !c.accept(head) {
				q.metrics.pollMisses.Inc()
				c.fut.FulfillEmpty()
				// The head was not consumed; the next live consumer
				// gets to see it.
				continue
			}
			c.fut.Fulfill(head)
			q.delivered()
			return
		}
		if _, ok := q.waiters.Remove(c.id); !ok {
			continue
		}
		if c.alarm != nil {
			c.alarm.Cancel()
		}
		c.fut.Fulfill(head)
		q.delivered()
		return
	}
}

// trim discards oldest items until the size estimate respects maxItems.
func (q *Queue[T]) trim() {
	dropped := 0
	for q.size.Load() > q.maxItems {
		if _, ok := q.items.Pop(); !ok {
			break
		}
		q.size.Dec()
		dropped++
	}
	if dropped > 0 {
		q.metrics.itemsDropped.Add(float64(dropped))
		q.metrics.size.Set(float64(q.size.Load()))
		q.log.Debug("discarded oldest items",
			zap.Int("count", dropped),
			zap.Int64("maxItems", q.maxItems),
		)
	}
}

// delivered removes the just-matched head and updates the size estimate.
func (q *Queue[T]) delivered() {
	q.items.Pop()
	q.metrics.itemsMatched.Inc()
	n := q.size.Dec()
	q.metrics.size.Set(float64(n))
	if n == 0 {
		q.drainPollers()
	}
}

func (q *Queue[T]) drainPollers() {
	drained := q.pollers.Drain()
	if len(drained) == 0 {
		return
	}
	for _, fut := range drained {
		fut.FulfillEmpty()
	}
	q.metrics.pollersDrained.Add(float64(len(drained)))
	q.log.Debug("drained pollers", zap.Int("count", len(drained)))
}
