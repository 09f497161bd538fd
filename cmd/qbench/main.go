// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/akamensky/argparse"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/foursquare/libkestrel/queue"
	"github.com/foursquare/libkestrel/throughput"
	"github.com/foursquare/libkestrel/timers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	parser := argparse.NewParser("qbench", "Load generator for the transfer queue")
	configPath := parser.String("c", "config", &argparse.Options{Help: "YAML workload file"})
	producers := parser.Int("p", "producers", &argparse.Options{Help: "producer goroutines (overrides config)"})
	consumers := parser.Int("g", "consumers", &argparse.Options{Help: "consumer goroutines (overrides config)"})
	items := parser.Int("n", "items", &argparse.Options{Help: "items per producer (overrides config)"})
	maxItems := parser.Int("m", "max-items", &argparse.Options{Help: "queue capacity, 0 for unbounded (overrides config)"})
	policy := parser.String("f", "full-policy", &argparse.Options{Help: "refuse-puts or drop-oldest (overrides config)"})
	timeout := parser.Int("t", "timeout", &argparse.Options{Default: 60, Help: "overall run timeout in seconds"})
	logLevel := parser.String("l", "log-level", &argparse.Options{Default: "info", Help: "log level"})
	logDir := parser.String("d", "log-dir", &argparse.Options{Help: "directory for rotated log files"})
	metricsAddr := parser.String("a", "metrics-addr", &argparse.Options{Help: "address to serve prometheus metrics on"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		return err
	}

	log, err := newLogger(*logLevel, *logDir)
	if err != nil {
		return err
	}
	defer log.Stop()

	cfg := throughput.NewDefaultConfig()
	if *configPath != "" {
		cfg, err = throughput.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	if *producers > 0 {
		cfg.Producers = *producers
	}
	if *consumers > 0 {
		cfg.Consumers = *consumers
	}
	if *items > 0 {
		cfg.Items = *items
	}
	if *maxItems > 0 {
		cfg.MaxItems = *maxItems
	}
	if *policy != "" {
		cfg.Policy = *policy
	}
	fullPolicy, err := cfg.FullPolicy()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			//nolint:gosec
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	dispatcher := timers.NewDispatcher()
	go dispatcher.Run()
	defer dispatcher.Stop()

	q, err := queue.New[uint64](log, registry, cfg.MaxItems, fullPolicy, dispatcher)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	summary, err := throughput.NewBenchmark(log, cfg, q).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf(
		"puts=%d refused=%d delivered=%d duplicates=%d expired=%d\n",
		summary.Puts, summary.Refused, summary.Delivered, summary.Duplicates, summary.Expired,
	)
	return nil
}

func newLogger(level string, dir string) (logging.Logger, error) {
	logLevel, err := logging.ToLevel(level)
	if err != nil {
		return nil, err
	}
	cores := []logging.WrappedCore{
		logging.NewWrappedCore(logLevel, os.Stderr, logging.Colors.ConsoleEncoder()),
	}
	if dir != "" {
		rw := &lumberjack.Logger{
			Filename:   path.Join(dir, "qbench.log"),
			MaxSize:    8, // megabytes
			MaxBackups: 4,
		}
		cores = append(cores, logging.NewWrappedCore(logLevel, rw, logging.JSON.FileEncoder()))
	}
	return logging.NewLogger("qbench", cores...), nil
}
