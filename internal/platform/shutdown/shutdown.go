package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
)

// NotifyContext returns a context cancelled on the first SIGINT or SIGTERM.
// The signal is logged so an interrupted batch run is distinguishable from a failed one.
func NotifyContext(parent context.Context, log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			if log != nil {
				log.Warn("shutdown signal received; cancelling run", "signal", sig.String())
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
