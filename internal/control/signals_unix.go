//go:build unix

package control

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals maps SIGUSR1 to toggle and SIGUSR2 to stop until ctx ends
// or the returned func is called.
func HandleSignals(ctx context.Context, c Controller, log *slog.Logger) func() {
	log = log.With(slog.String("component", "control"))
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				action := ActionToggle
				if sig == syscall.SIGUSR2 {
					action = ActionStop
				}
				effect, s, err := c.Dispatch(action)
				if err != nil {
					log.Warn("signal action failed", slog.String("signal", sig.String()), slog.String("error", err.Error()))
					continue
				}
				log.Info("signal handled",
					slog.String("signal", sig.String()),
					slog.String("effect", effect.String()),
					slog.String("state", string(s.State)))
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}
