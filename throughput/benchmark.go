// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package throughput

import (
	"context"
	"runtime"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foursquare/libkestrel/future"
	"github.com/foursquare/libkestrel/queue"
)

// Benchmark drives a workload of concurrent puts and gets against a
// single queue and reports what happened to every item.
type Benchmark struct {
	log logging.Logger
	cfg *Config
	q   *queue.Queue[uint64]

	nextID        atomic.Uint64
	producersDone atomic.Bool
	tracker       *Tracker
}

func NewBenchmark(log logging.Logger, cfg *Config, q *queue.Queue[uint64]) *Benchmark {
	return &Benchmark{
		log:     log,
		cfg:     cfg,
		q:       q,
		tracker: NewTracker(cfg.Producers * cfg.Items),
	}
}

// Run produces and consumes until every producer has issued its items and
// the queue is drained (or [ctx] ends). The returned summary accounts for
// each put as delivered, refused, or still buffered/dropped.
func (b *Benchmark) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	producers, pctx := errgroup.WithContext(ctx)
	for i := 0; i < b.cfg.Producers; i++ {
		producers.Go(func() error {
			return b.produce(pctx)
		})
	}
	g.Go(func() error {
		defer b.producersDone.Store(true)
		return producers.Wait()
	})

	for i := 0; i < b.cfg.Consumers; i++ {
		g.Go(func() error {
			return b.consume(ctx)
		})
	}

	err := g.Wait()
	summary := b.tracker.Summary()
	b.log.Info("benchmark finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("puts", summary.Puts),
		zap.Int("refused", summary.Refused),
		zap.Int("delivered", summary.Delivered),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("expired", summary.Expired),
	)
	return summary, err
}

func (b *Benchmark) produce(ctx context.Context) error {
	for i := 0; i < b.cfg.Items; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.q.Put(b.nextID.Inc()) {
			b.tracker.Put()
		} else {
			b.tracker.Refused()
			runtime.Gosched()
		}
	}
	return nil
}

func (b *Benchmark) consume(ctx context.Context) error {
	for {
		if b.producersDone.Load() && b.q.Len() == 0 {
			return nil
		}
		var fut *future.Future[uint64]
		if b.cfg.GetTimeout > 0 {
			fut = b.q.GetUntil(time.Now().Add(b.cfg.GetTimeout))
		} else {
			// With no timeout the final gets only unblock when [ctx]
			// ends; callers must bound the context.
			fut = b.q.Get()
		}
		v, ok, err := fut.WaitContext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			b.tracker.Expired()
			continue
		}
		b.tracker.Delivered(v)
	}
}
