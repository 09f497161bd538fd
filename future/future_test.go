// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package future

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestFutureFulfill(t *testing.T) {
	require := require.New(t)
	f := New[string]()

	require.False(f.Fulfilled())
	require.True(f.Fulfill("foo"))
	require.True(f.Fulfilled())

	v, ok := f.Wait()
	require.True(ok)
	require.Equal("foo", v)

	// Only the first write takes effect
	require.False(f.Fulfill("bar"))
	require.False(f.FulfillEmpty())
	v, ok = f.Wait()
	require.True(ok)
	require.Equal("foo", v)
}

func TestFutureFulfillEmpty(t *testing.T) {
	require := require.New(t)
	f := New[string]()

	require.True(f.FulfillEmpty())
	v, ok := f.Wait()
	require.False(ok)
	require.Empty(v)
	require.False(f.Fulfill("foo"))
}

func TestFutureWaitBlocks(t *testing.T) {
	require := require.New(t)
	f := New[int]()

	type outcome struct {
		v  int
		ok bool
	}
	res := make(chan outcome, 1)
	go func() {
		v, ok := f.Wait()
		res <- outcome{v, ok}
	}()

	f.Fulfill(42)
	got := <-res
	require.True(got.ok)
	require.Equal(42, got.v)
}

func TestFutureWaitContext(t *testing.T) {
	require := require.New(t)
	f := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := f.WaitContext(ctx)
	require.ErrorIs(err, context.DeadlineExceeded)

	f.Fulfill(7)
	v, ok, err := f.WaitContext(context.Background())
	require.NoError(err)
	require.True(ok)
	require.Equal(7, v)
}

func TestFutureListen(t *testing.T) {
	require := require.New(t)
	f := New[string]()

	var got string
	var gotOK bool
	fired := make(chan struct{})
	f.Listen(func(v string, ok bool) {
		got, gotOK = v, ok
		close(fired)
	})

	f.Fulfill("foo")
	<-fired
	require.True(gotOK)
	require.Equal("foo", got)

	// Listener attached after fulfillment runs inline
	ran := false
	f.Listen(func(v string, ok bool) {
		ran = true
		require.True(ok)
		require.Equal("foo", v)
	})
	require.True(ran)
}

func TestFutureConcurrentFulfill(t *testing.T) {
	require := require.New(t)
	f := New[int]()

	wins := atomic.NewInt64(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			if f.Fulfill(i) {
				wins.Inc()
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.FulfillEmpty() {
				wins.Inc()
			}
		}()
	}
	wg.Wait()

	require.Equal(int64(1), wins.Load())
	require.True(f.Fulfilled())
}
