// Command dgcat copies datagrams from one endpoint to another,
// preserving message boundaries across UDP sockets, byte-stream
// files/pipes, and a synthetic random generator. Grounded on
// original_source's src/main.cpp (argparse-based CLI over the same
// flag set) and on the teacher's examples/echo/main.go for Go CLI
// idiom (flag package, log-based startup messages, signal.Notify
// shutdown).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/copier"
	"github.com/mckelvie-org/dg-cat/stats"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		maxDatagramSize = flag.Int("max-datagram-size", config.DefaultMaxDatagramSize, "maximum datagram payload size in bytes")
		maxBacklog      = flag.Int("max-backlog", -1, "maximum ring backlog size in bytes (-1 = default 2GiB)")
		maxIovecs       = flag.Int("max-iovecs", config.DefaultMaxIovecs, "maximum datagrams per batch receive")
		maxReadSize     = flag.Int("max-read-size", config.DefaultMaxReadSize, "read buffer size for stream sources")
		maxWriteSize    = flag.Int("max-write-size", config.DefaultMaxWriteSize, "write buffer size for stream sinks")
		pollingInterval = flag.Float64("polling-interval", config.DefaultPollingInterval.Seconds(), "seconds between force-eof polls")
		eofTimeout      = flag.Float64("eof-timeout", 0, "seconds of silence before declaring EOF (0 = wait forever)")
		startTimeout    = flag.Float64("start-timeout", -1, "seconds to wait for the first datagram (-1 = use eof-timeout)")
		maxRate         = flag.Float64("max-datagram-rate", -1, "maximum datagrams/sec sent by the sink (-1 = unlimited)")
		maxDatagrams    = flag.Int64("max-datagrams", -1, "stop after this many datagrams (-1 = unlimited)")
		appendFlag      = flag.Bool("append", false, "append to stream sink instead of truncating")
		noHandleSignals = flag.Bool("no-handle-signals", false, "disable SIGINT/SIGUSR1 handling")
		logLevel        = flag.String("log-level", "WARNING", "DEBUG|INFO|WARNING|ERROR|CRITICAL")
		tb              = flag.Bool("tb", false, "print a stack trace to stderr on fatal error")
		metricsAddr     = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <src> <dst>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	src, dst := "-", "-"
	switch flag.NArg() {
	case 0:
	case 1:
		src = flag.Arg(0)
	default:
		src = flag.Arg(0)
		dst = flag.Arg(1)
	}

	cfg := config.New(src, dst,
		config.WithMaxDatagramSize(*maxDatagramSize),
		config.WithMaxBacklog(*maxBacklog),
		config.WithMaxIovecs(*maxIovecs),
		config.WithMaxReadSize(*maxReadSize),
		config.WithMaxWriteSize(*maxWriteSize),
		config.WithPollingInterval(secondsToDuration(*pollingInterval)),
		config.WithEOFTimeout(secondsToDuration(*eofTimeout)),
		config.WithStartTimeout(secondsToDurationAllowNegative(*startTimeout)),
		config.WithMaxDatagramRate(*maxRate),
		config.WithMaxDatagrams(*maxDatagrams),
		config.WithAppend(*appendFlag),
		config.WithHandleSignals(!*noHandleSignals),
		config.WithPrintTraceback(*tb),
		config.WithLogLevel(*logLevel),
	)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "dgcat: %v\n", err)
		return 1
	}

	defer func() {
		if r := recover(); r != nil {
			if cfg.PrintTraceback {
				fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			} else {
				fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			}
			os.Exit(1)
		}
	}()

	c, err := copier.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dgcat: %v\n", err)
		return 1
	}

	if *metricsAddr != "" {
		exp := stats.NewPrometheusExporter(prometheus.DefaultRegisterer)
		c.WithMetrics(exp)
		go serveMetrics(*metricsAddr, logger)
	}

	if err := c.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "dgcat: %v\n", err)
		return 1
	}

	c.HandleSignals(cfg.HandleSignals)
	err = c.Wait()
	_ = c.Close()

	snap := c.Stats()
	fmt.Fprintln(os.Stderr, snap.String())

	if err != nil {
		fmt.Fprintf(os.Stderr, "dgcat: %v\n", err)
		return 1
	}
	return 0
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func secondsToDurationAllowNegative(s float64) time.Duration {
	if s < 0 {
		return -1
	}
	return time.Duration(s * float64(time.Second))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARNING":
		lvl = slog.LevelWarn
	case "ERROR", "CRITICAL":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
