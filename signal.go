package scalapipe

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context canceled on SIGINT or SIGTERM. The first
// signal only cancels: the scheduler lets in-flight compiles drain so every
// compiler is closed before the process exits. A second signal skips the
// drain and terminates immediately with the conventional 128+signal status.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-ch
		fmt.Fprintf(os.Stderr, "%v: draining in-flight compiles (interrupt again to exit now)\n", sig)
		cancel()
		sig = <-ch
		if num, ok := sig.(syscall.Signal); ok {
			os.Exit(128 + int(num))
		}
		os.Exit(1)
	}()
	return ctx, cancel
}
