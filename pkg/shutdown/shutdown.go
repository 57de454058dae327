// Package shutdown turns process signals into an orderly stop.
package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CreateGracefulShutdownChannel returns a channel that receives SIGINT and
// SIGTERM.
func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	return gracefulShutdown
}

// ListenForShutdown blocks until a signal arrives on sig, then runs
// onShutdown in the background and waits for it to close done. It returns
// once done is closed or timeout elapses, whichever comes first.
func ListenForShutdown(sig <-chan os.Signal, done chan bool, onShutdown func(), timeout time.Duration, l *zap.Logger) {
	received := <-sig
	l.Sugar().Infow("Received shutdown signal", zap.String("signal", received.String()))

	go func() {
		onShutdown()
		close(done)
	}()

	select {
	case <-done:
		l.Sugar().Infow("Shutdown complete")
	case <-time.After(timeout):
		l.Sugar().Warnw("Shutdown timed out", zap.Duration("timeout", timeout))
	}
}
