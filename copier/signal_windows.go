//go:build windows

// Windows has no SIGUSR1 and Ctrl-C delivery is Go's usual
// syscall.SIGINT equivalent only; the diagnostic-dump half of the
// signal surface is unavailable here, matching the degradation the
// teacher itself shows between reactor_linux.go and reactor_windows.go
// for platform-gapped features.
package copier

import (
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals installs Ctrl-C handling only; SIGUSR1-triggered
// diagnostic dumps are not available on this platform.
func (c *Copier) HandleSignals(handle bool) {
	if !handle {
		c.Wait()
		return
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT)
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
		case <-sigCh:
			sigintCount++
			if sigintCount == 1 {
				c.log.Info("interrupt received, forcing EOF")
				c.ForceEOF()
			} else {
				c.log.Warn("second interrupt received, aborting immediately")
				os.Exit(1)
			}
		}
	}
}
