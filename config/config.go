// Package config defines the immutable configuration dg-cat's Copier
// is constructed with, grounded on the teacher's Config/DefaultConfig
// pattern (facade/hioload.go) and on original_source's DgCatConfig
// invariants (include/dg_cat/config.hpp, include/dg_cat/constants.hpp).
package config

import (
	"fmt"
	"time"

	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/framing"
)

// Defaults mirror original_source's constants.hpp.
const (
	DefaultMaxDatagramSize  = 65535
	DefaultMaxIovecs        = 2048
	DefaultMaxBacklog       = 2 * 1024 * 1024 * 1024 // 2 GiB
	DefaultMaxWriteSize     = 256 * 1024
	DefaultMaxReadSize      = 256 * 1024
	DefaultPollingInterval  = 2 * time.Second
)

// Config holds every tunable named by spec.md §3/§6, immutable once a
// Copier has been started from it.
type Config struct {
	Src string
	Dst string

	MaxDatagramSize int
	MaxBacklog      int
	MaxIovecs       int
	MaxReadSize     int
	MaxWriteSize    int

	PollingInterval time.Duration
	EOFTimeout      time.Duration
	StartTimeout    time.Duration // negative => use EOFTimeout

	MaxDatagramRate float64 // <=0 => unlimited
	MaxDatagrams    int64   // <=0 => unlimited

	Append bool

	HandleSignals bool
	PrintTraceback bool

	LogLevel string
}

// Option mutates a Config during construction, matching the teacher's
// functional-option idiom for facade.Config.
type Option func(*Config)

// New builds a Config from spec.md's defaults plus any Options, the
// way facade.DefaultConfig() seeds teacher's Config before callers
// layer overrides on top.
func New(src, dst string, opts ...Option) *Config {
	c := &Config{
		Src:             src,
		Dst:             dst,
		MaxDatagramSize: DefaultMaxDatagramSize,
		MaxBacklog:      DefaultMaxBacklog,
		MaxIovecs:       DefaultMaxIovecs,
		MaxReadSize:     DefaultMaxReadSize,
		MaxWriteSize:    DefaultMaxWriteSize,
		PollingInterval: DefaultPollingInterval,
		EOFTimeout:      0,
		StartTimeout:    -1,
		MaxDatagramRate: -1,
		MaxDatagrams:    -1,
		HandleSignals:   true,
		LogLevel:        "WARNING",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithMaxDatagramSize(n int) Option { return func(c *Config) { c.MaxDatagramSize = n } }
func WithMaxBacklog(n int) Option      { return func(c *Config) { c.MaxBacklog = n } }
func WithMaxIovecs(n int) Option       { return func(c *Config) { c.MaxIovecs = n } }
func WithMaxReadSize(n int) Option     { return func(c *Config) { c.MaxReadSize = n } }
func WithMaxWriteSize(n int) Option    { return func(c *Config) { c.MaxWriteSize = n } }
func WithPollingInterval(d time.Duration) Option {
	return func(c *Config) { c.PollingInterval = d }
}
func WithEOFTimeout(d time.Duration) Option   { return func(c *Config) { c.EOFTimeout = d } }
func WithStartTimeout(d time.Duration) Option { return func(c *Config) { c.StartTimeout = d } }
func WithMaxDatagramRate(r float64) Option    { return func(c *Config) { c.MaxDatagramRate = r } }
func WithMaxDatagrams(n int64) Option         { return func(c *Config) { c.MaxDatagrams = n } }
func WithAppend(b bool) Option                { return func(c *Config) { c.Append = b } }
func WithHandleSignals(b bool) Option         { return func(c *Config) { c.HandleSignals = b } }
func WithPrintTraceback(b bool) Option        { return func(c *Config) { c.PrintTraceback = b } }
func WithLogLevel(level string) Option        { return func(c *Config) { c.LogLevel = level } }

// Validate resolves sentinel values and checks spec.md's invariants,
// the Go equivalent of DgCatConfig's constructor-time clamping
// (negative start_timeout => eof_timeout) plus the explicit checks
// main.cpp's argument parser otherwise leaves implicit.
func (c *Config) Validate() error {
	if c.MaxDatagramSize <= 0 {
		return fmt.Errorf("%w: max datagram size must be positive, got %d", dgerr.ErrInvalidConfig, c.MaxDatagramSize)
	}
	if c.MaxBacklog <= 0 {
		c.MaxBacklog = DefaultMaxBacklog
	}
	minBacklog := c.MaxDatagramSize + framing.PrefixLen
	if c.MaxBacklog < minBacklog {
		return fmt.Errorf("%w: max backlog %d smaller than one datagram + prefix (%d)",
			dgerr.ErrInvalidConfig, c.MaxBacklog, minBacklog)
	}
	if c.MaxIovecs <= 0 {
		c.MaxIovecs = DefaultMaxIovecs
	}
	if c.MaxReadSize <= 0 {
		c.MaxReadSize = DefaultMaxReadSize
	}
	if c.MaxWriteSize <= 0 {
		c.MaxWriteSize = DefaultMaxWriteSize
	}
	if c.StartTimeout < 0 {
		c.StartTimeout = c.EOFTimeout
	}
	if c.Src == "" || c.Dst == "" {
		return fmt.Errorf("%w: src and dst endpoints are required", dgerr.ErrInvalidConfig)
	}
	return nil
}
