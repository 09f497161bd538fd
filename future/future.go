// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package future

import (
	"context"
	"sync"
)

// Future is a one-shot result cell. It is written at most once, by
// [Fulfill] or [FulfillEmpty], and can be observed either by blocking
// ([Wait], [WaitContext]) or by attaching a continuation ([Listen]).
//
// The empty outcome carries no value; it is how timeouts, predicate
// misses, and drains are reported.
type Future[T any] struct {
	done chan struct{}

	l         sync.Mutex
	value     T
	ok        bool
	fulfilled bool
	listeners []func(T, bool)
}

// New returns a pending [Future].
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Fulfill writes [v] to f. Only the first write to f takes effect;
// Fulfill reports whether this call was it.
func (f *Future[T]) Fulfill(v T) bool {
	return f.fulfill(v, true)
}

// FulfillEmpty resolves f with the empty outcome. Only the first write to
// f takes effect; FulfillEmpty reports whether this call was it.
func (f *Future[T]) FulfillEmpty() bool {
	return f.fulfill(*new(T), false)
}

func (f *Future[T]) fulfill(v T, ok bool) bool {
	f.l.Lock()
	if f.fulfilled {
		f.l.Unlock()
		return false
	}
	f.value = v
	f.ok = ok
	f.fulfilled = true
	listeners := f.listeners
	f.listeners = nil
	f.l.Unlock()

	close(f.done)
	for _, fn := range listeners {
		fn(v, ok)
	}
	return true
}

// Wait blocks until f is fulfilled and returns its outcome.
func (f *Future[T]) Wait() (T, bool) {
	<-f.done
	return f.value, f.ok
}

// WaitContext blocks until f is fulfilled or [ctx] is done.
func (f *Future[T]) WaitContext(ctx context.Context) (T, bool, error) {
	select {
	case <-f.done:
		return f.value, f.ok, nil
	case <-ctx.Done():
		return *new(T), false, ctx.Err()
	}
}

// Listen attaches [fn] to run when f is fulfilled. If f is already
// fulfilled, fn runs inline before Listen returns. Each listener is
// invoked exactly once, on whichever goroutine fulfills f (or this one).
func (f *Future[T]) Listen(fn func(T, bool)) {
	f.l.Lock()
	if !f.fulfilled {
		f.listeners = append(f.listeners, fn)
		f.l.Unlock()
		return
	}
	f.l.Unlock()

	fn(f.value, f.ok)
}

// Fulfilled returns whether f has been written.
func (f *Future[T]) Fulfilled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
