package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/AdguardTeam/golibs/log"
)

// RunUntilSignal starts a's event loop on the calling goroutine and returns
// once SIGINT or SIGTERM arrives and the loop has unwound, or the loop
// itself fails.
func RunUntilSignal(a *App) (err error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Info("app: received %s, shutting down", sig)
		a.Stop()
	}()

	return a.Run()
}
