// Command once runs a single update and exits, for use from cron or a
// Cloud Run job instead of the HTTP trigger.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/monitoring"
	"github.com/raterudder/solarbridge/pkg/platform"
	"github.com/raterudder/solarbridge/pkg/server"
)

func main() {
	f := monitoring.Configured()
	p, d := platform.Configured()
	srv := server.Configured(f, p, d)
	timeout := lflag.Duration("once-timeout", 2*time.Minute, "Maximum time for the update to run")

	lflag.Configure()
	log.Configure()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	report, err := srv.Update(ctx)
	for _, o := range report.Devices {
		log.Ctx(ctx).InfoContext(
			ctx,
			"device result",
			slog.String("device", string(o.Role)),
			slog.String("deviceID", o.DeviceID),
			slog.Int("events", o.Events),
			slog.Bool("dryRun", o.DryRun),
			slog.String("error", o.Error),
		)
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "update failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "update finished")
}
