// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestSet(t *testing.T) {
	require := require.New(t)
	s := New[string](16)

	require.Zero(s.Len())
	require.False(s.Contains(1))
	_, ok := s.Remove(1)
	require.False(ok)

	s.Add(1, "foo")
	s.Add(2, "bar")
	require.Equal(2, s.Len())
	require.True(s.Contains(1))
	require.True(s.Contains(2))

	v, ok := s.Remove(1)
	require.True(ok)
	require.Equal("foo", v)
	require.False(s.Contains(1))
	require.Equal(1, s.Len())

	// Remove is not repeatable
	_, ok = s.Remove(1)
	require.False(ok)
}

func TestSetDrain(t *testing.T) {
	require := require.New(t)
	s := New[int](16)

	require.Empty(s.Drain())

	for i := 0; i < 100; i++ {
		s.Add(uint64(i), i)
	}
	drained := s.Drain()
	require.Len(drained, 100)
	require.Zero(s.Len())

	seen := make(map[int]struct{}, len(drained))
	for _, v := range drained {
		seen[v] = struct{}{}
	}
	require.Len(seen, 100)
}

func TestSetConcurrentClaim(t *testing.T) {
	require := require.New(t)
	s := New[int](16)

	const ids = 512
	for i := 0; i < ids; i++ {
		s.Add(uint64(i), i)
	}

	// Many goroutines race to claim every id; each id must be won
	// exactly once.
	claims := atomic.NewInt64(0)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ids; i++ {
				if _, ok := s.Remove(uint64(i)); ok {
					claims.Inc()
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(int64(ids), claims.Load())
	require.Zero(s.Len())
}
