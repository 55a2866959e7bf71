//go:build !unix

package control

import (
	"context"
	"log/slog"
)

// HandleSignals is a no-op where SIGUSR1 and SIGUSR2 do not exist.
func HandleSignals(_ context.Context, _ Controller, log *slog.Logger) func() {
	log.Warn("signal control unavailable on this platform")
	return func() {}
}
