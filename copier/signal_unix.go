//go:build !windows

// Signal surface (C9): a dedicated goroutine receiving SIGINT/SIGUSR1,
// the portable stand-in for original_source's handle_signals
// (include/dg_cat/datagram_copier.hpp), which blocks a whole OS thread
// in sigwait — something Go cannot do without cgo. signal.Notify's
// channel delivery preserves the same two behaviors: first SIGINT asks
// for a graceful stop (force_eof), a second SIGINT aborts immediately;
// SIGUSR1 dumps the current stats/warnings snapshot.
package copier

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals installs the signal surface and blocks until the
// Copier's workers finish or a second SIGINT forces an abort. Call it
// from main after Start(); it returns once shutdown is complete, not
// before. Pass handle=false (matching --no-handle-signals) to skip
// installation entirely.
func (c *Copier) HandleSignals(handle bool) {
	if !handle {
		c.Wait()
		return
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	sigintCount := 0
	for {
		select {
		case <-done:
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT:
				sigintCount++
				if sigintCount == 1 {
					c.log.Info("SIGINT received, forcing EOF")
					c.ForceEOF()
				} else {
					c.log.Warn("second SIGINT received, aborting immediately")
					os.Exit(1)
				}
			case syscall.SIGUSR1:
				dump := c.DumpDiagnostics()
				c.log.Info("diagnostic dump", slog.Any("stats", dump["stats"]), slog.Any("warnings", dump["warnings"]))
			}
		}
	}
}
