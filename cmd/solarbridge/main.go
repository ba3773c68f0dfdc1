package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/monitoring"
	"github.com/raterudder/solarbridge/pkg/platform"
	"github.com/raterudder/solarbridge/pkg/server"
)

func main() {
	// init packages
	f := monitoring.Configured()
	p, d := platform.Configured()

	// init server
	srv := server.Configured(f, p, d)

	// parse flags
	lflag.Configure()
	log.Configure()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
