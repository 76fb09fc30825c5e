package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "1.0.0"

func main() {
	// Cancel the context on interrupt so generation stops pulling fragments
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		a.reportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
