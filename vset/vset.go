// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vset

import (
	"encoding/binary"
	"runtime"
	"sync"

	"github.com/zeebo/xxh3"
)

var shardCount = uint64(runtime.NumCPU() * 4)

// Set is a sharded concurrent map from uint64 ids to values, used to
// track which registered requests are still eligible to be settled.
//
// Remove reports whether the id was present, which makes it usable as a
// claim: when several goroutines race to settle the same id, exactly one
// observes true.
type Set[V any] struct {
	count  uint64
	shards []*shard[V]
}

type shard[V any] struct {
	l    sync.RWMutex
	data map[uint64]V
}

// New returns an empty [Set] sized for [initial] ids.
func New[V any](initial int) *Set[V] {
	s := &Set[V]{
		count:  shardCount,
		shards: make([]*shard[V], shardCount),
	}
	for i := uint64(0); i < shardCount; i++ {
		s.shards[i] = &shard[V]{data: make(map[uint64]V, max(16, initial/int(shardCount)))}
	}
	return s
}

func (s *Set[V]) shard(id uint64) *shard[V] {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return s.shards[xxh3.Hash(b[:])%s.count]
}

// Add inserts [id] with [v] into s.
func (s *Set[V]) Add(id uint64, v V) {
	shard := s.shard(id)

	shard.l.Lock()
	defer shard.l.Unlock()
	shard.data[id] = v
}

// Remove deletes [id] from s and reports whether it was present.
func (s *Set[V]) Remove(id uint64) (V, bool) {
	shard := s.shard(id)

	shard.l.Lock()
	defer shard.l.Unlock()
	v, ok := shard.data[id]
	if ok {
		delete(shard.data, id)
	}
	return v, ok
}

// Contains reports whether [id] is in s.
func (s *Set[V]) Contains(id uint64) bool {
	shard := s.shard(id)

	shard.l.RLock()
	defer shard.l.RUnlock()
	_, ok := shard.data[id]
	return ok
}

// Drain removes every entry from s and returns the removed values.
func (s *Set[V]) Drain() []V {
	var drained []V
	for i := uint64(0); i < s.count; i++ {
		shard := s.shards[i]
		shard.l.Lock()
		for id, v := range shard.data {
			drained = append(drained, v)
			delete(shard.data, id)
		}
		shard.l.Unlock()
	}
	return drained
}

// Len returns the number of ids in s.
func (s *Set[V]) Len() int {
	l := 0
	for i := uint64(0); i < s.count; i++ {
		shard := s.shards[i]
		shard.l.RLock()
		l += len(shard.data)
		shard.l.RUnlock()
	}
	return l
}
