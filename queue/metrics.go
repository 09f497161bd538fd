// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	puts           prometheus.Counter
	putsRefused    prometheus.Counter
	itemsDropped   prometheus.Counter
	itemsMatched   prometheus.Counter
	waitersAdded   prometheus.Counter
	pollersAdded   prometheus.Counter
	expired        prometheus.Counter
	pollMisses     prometheus.Counter
	pollersDrained prometheus.Counter
	handoffPasses  prometheus.Counter
	size           prometheus.Gauge
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "puts",
			Help:      "number of accepted puts",
		}),
		putsRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "puts_refused",
			Help:      "number of puts rejected at capacity",
		}),
		itemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "items_dropped",
			Help:      "number of oldest items discarded by DropOldest",
		}),
		itemsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "items_matched",
			Help:      "number of items delivered to a consumer",
		}),
		waitersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "waiters_added",
			Help:      "number of registered waiters",
		}),
		pollersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "pollers_added",
			Help:      "number of registered pollers",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "waiters_expired",
			Help:      "number of waiters resolved empty by deadline",
		}),
		pollMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "poll_misses",
			Help:      "number of pollers whose predicate rejected the head",
		}),
		pollersDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "pollers_drained",
			Help:      "number of pollers resolved empty because the queue emptied",
		}),
		handoffPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "handoff_passes",
			Help:      "number of hand-off matching passes",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "queue",
			Name:      "size",
			Help:      "estimated number of buffered items",
		}),
	}
	if r == nil {
		return m, nil
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.puts),
		r.Register(m.putsRefused),
		r.Register(m.itemsDropped),
		r.Register(m.itemsMatched),
		r.Register(m.waitersAdded),
		r.Register(m.pollersAdded),
		r.Register(m.expired),
		r.Register(m.pollMisses),
		r.Register(m.pollersDrained),
		r.Register(m.handoffPasses),
		r.Register(m.size),
	)
	return m, errs.Err
}
