// File: transport/tcp/options.go
// Package tcp defines functional options for TCP endpoints.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/control"
	"github.com/momentics/hioload-net/node"
)

type config struct {
	log           zerolog.Logger
	metrics       *control.MetricsRegistry
	maxPacketSize int
	queueCapacity int
	dialTimeout   time.Duration
}

func defaultConfig() config {
	return config{
		log:           zerolog.Nop(),
		maxPacketSize: node.DefaultMaxPacketSize,
		queueCapacity: 128,
		dialTimeout:   10 * time.Second,
	}
}

// Option customizes a TCP endpoint.
type Option func(*config)

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithMetrics wires transport counters into a registry.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithMaxPacketSize bounds one receive read for nodes created by this endpoint.
func WithMaxPacketSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPacketSize = n
		}
	}
}

// WithAcceptQueueCapacity sizes the internal accepted-connection queue.
func WithAcceptQueueCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueCapacity = n
		}
	}
}

// WithDialTimeout bounds the client connect attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}
