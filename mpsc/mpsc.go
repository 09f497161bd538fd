// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mpsc

import (
	"sync/atomic"
	"unsafe"
)

// Queue implements an unbounded FIFO linked queue.
//
// [Push] is safe to call from any number of goroutines. [Peek] and [Pop]
// must only be called by a single logical consumer at a time; the caller is
// responsible for providing that exclusivity (and the happens-before edges
// between successive consumers, if the consumer role migrates across
// goroutines).
//
// Original design: http://www.1024cores.net/home/lock-free-algorithms/queues/non-intrusive-mpsc-node-based-queue
type Queue[T any] struct {
	head *node[T]
	tail *node[T]
}

type node[T any] struct {
	next  *node[T]
	value T
}

// New returns an empty [Queue].
func New[T any]() *Queue[T] {
	stub := &node[T]{}
	return &Queue[T]{
		head: stub,
		tail: stub,
	}
}

// Push appends [v] to the back of q.
func (q *Queue[T]) Push(v T) {
	n := &node[T]{value: v}
	prev := (*node[T])(atomic.SwapPointer((*unsafe.Pointer)(unsafe.Pointer(&q.head)), unsafe.Pointer(n)))
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&prev.next)), unsafe.Pointer(n))
}

// Peek returns the front of q without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	next := (*node[T])(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail.next))))
	if next == nil {
		return *new(T), false
	}
	return next.value, true
}

// Pop removes and returns the front of q.
func (q *Queue[T]) Pop() (T, bool) {
	tail := q.tail
	next := (*node[T])(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&tail.next))))
	if next == nil {
		return *new(T), false
	}
	q.tail = next
	v := next.value
	next.value = *new(T)
	return v, true
}

// Empty returns whether q has no elements.
func (q *Queue[T]) Empty() bool {
	return (*node[T])(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail.next)))) == nil
}
