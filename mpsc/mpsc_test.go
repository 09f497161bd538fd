// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mpsc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	require := require.New(t)
	q := New[string]()

	require.True(q.Empty())
	_, ok := q.Peek()
	require.False(ok)
	_, ok = q.Pop()
	require.False(ok)

	q.Push("foo")
	q.Push("bar")
	q.Push("baz")
	require.False(q.Empty())

	v, ok := q.Peek()
	require.True(ok)
	require.Equal("foo", v)
	// Peek does not remove
	v, ok = q.Peek()
	require.True(ok)
	require.Equal("foo", v)

	v, ok = q.Pop()
	require.True(ok)
	require.Equal("foo", v)
	v, ok = q.Pop()
	require.True(ok)
	require.Equal("bar", v)
	v, ok = q.Pop()
	require.True(ok)
	require.Equal("baz", v)

	require.True(q.Empty())
	_, ok = q.Pop()
	require.False(ok)

	q.Push("qux")
	v, ok = q.Pop()
	require.True(ok)
	require.Equal("qux", v)
}

func TestQueueConcurrentPush(t *testing.T) {
	require := require.New(t)
	q := New[int]()

	const (
		producers   = 8
		perProducer = 1_000
	)
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		base := i * perProducer
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Push(base + j)
			}
		}()
	}
	wg.Wait()

	// Every producer's elements come out in that producer's order.
	next := make([]int, producers)
	popped := 0
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		p := v / perProducer
		require.Equal(next[p], v%perProducer)
		next[p]++
		popped++
	}
	require.Equal(producers*perProducer, popped)
	require.True(q.Empty())
}
