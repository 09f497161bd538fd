// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package throughput

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/foursquare/libkestrel/queue"
)

// Config describes a benchmark workload.
type Config struct {
	// Producers is the number of concurrent producer goroutines.
	Producers int `yaml:"producers"`
	// Consumers is the number of concurrent consumer goroutines.
	Consumers int `yaml:"consumers"`
	// Items is the number of items each producer puts.
	Items int `yaml:"items"`
	// MaxItems bounds the queue; <= 0 means unbounded.
	MaxItems int `yaml:"maxItems"`
	// Policy is "refuse-puts" or "drop-oldest".
	Policy string `yaml:"policy"`
	// GetTimeout bounds each consumer get; 0 waits forever.
	GetTimeout time.Duration `yaml:"getTimeout"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Producers:  4,
		Consumers:  4,
		Items:      10_000,
		MaxItems:   0,
		Policy:     "refuse-puts",
		GetTimeout: 100 * time.Millisecond,
	}
}

// LoadConfig reads a YAML workload file over the defaults.
func LoadConfig(path string) (*Config, error) {
	c := NewDefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

// FullPolicy maps the configured policy name to a [queue.FullPolicy].
func (c *Config) FullPolicy() (queue.FullPolicy, error) {
	switch c.Policy {
	case "refuse-puts", "":
		return queue.RefusePuts, nil
	case "drop-oldest":
		return queue.DropOldest, nil
	default:
		return 0, fmt.Errorf("%w: %q", queue.ErrInvalidPolicy, c.Policy)
	}
}
