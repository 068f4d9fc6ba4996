// Package sigctx binds the process lifetime to shutdown signals.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// NotifyContext returns a context cancelled on the first shutdown
// signal. The terminal drains pending stock reservations before the
// cancellation propagates into a hard exit.
func NotifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), shutdownSignals...)
}
