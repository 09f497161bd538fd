// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestDispatcherFires(t *testing.T) {
	require := require.New(t)
	d := NewDispatcher()
	go d.Run()
	defer d.Stop()

	fired := make(chan struct{})
	d.Schedule(time.Now().Add(10*time.Millisecond), func() {
		close(fired)
	})
	require.Equal(1, d.Len())

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		require.FailNow("alarm never fired")
	}
	require.Zero(d.Len())
}

func TestDispatcherCancel(t *testing.T) {
	require := require.New(t)
	d := NewDispatcher()
	go d.Run()
	defer d.Stop()

	cancelledFired := atomic.NewBool(false)
	fired := make(chan struct{})
	a := d.Schedule(time.Now().Add(20*time.Millisecond), func() {
		cancelledFired.Store(true)
	})
	d.Schedule(time.Now().Add(40*time.Millisecond), func() {
		close(fired)
	})

	a.Cancel()
	// Cancel is idempotent
	a.Cancel()

	<-fired
	require.False(cancelledFired.Load())
	require.Zero(d.Len())
}

func TestDispatcherOrdering(t *testing.T) {
	require := require.New(t)
	d := NewDispatcher()
	go d.Run()
	defer d.Stop()

	var order []int
	done := make(chan struct{})
	now := time.Now()
	// Scheduled out of order; must fire by deadline.
	d.Schedule(now.Add(30*time.Millisecond), func() {
		order = append(order, 3)
		close(done)
	})
	d.Schedule(now.Add(10*time.Millisecond), func() {
		order = append(order, 1)
	})
	d.Schedule(now.Add(20*time.Millisecond), func() {
		order = append(order, 2)
	})

	<-done
	require.Equal([]int{1, 2, 3}, order)
}

func TestDispatcherPastDeadline(t *testing.T) {
	require := require.New(t)
	d := NewDispatcher()
	go d.Run()
	defer d.Stop()

	fired := make(chan struct{})
	d.Schedule(time.Now().Add(-time.Second), func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		require.FailNow("past-deadline alarm never fired")
	}
}
