package driver

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandlers wires SIGINT/SIGTERM to the shutdown flag and logs
// SIGHUP without acting on it (spec §5: "SIGHUP is logged and ignored,
// reserved for reconfiguration"). Returns a function that stops the
// notification and should be deferred by the caller.
func (d *Driver) installSignalHandlers() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if sig == syscall.SIGHUP {
					d.Log.Info("received SIGHUP, ignoring (reserved for reconfiguration)")
					continue
				}
				d.Log.Info("received signal, requesting graceful shutdown", "signal", sig)
				d.shutdownRequested.Store(true)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func (d *Driver) isShutdownRequested() bool {
	return d.shutdownRequested.Load()
}
