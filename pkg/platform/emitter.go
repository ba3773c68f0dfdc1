package platform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/types"
)

// Emit sends each device's events concurrently and returns one outcome per
// device in the same order as batches. A failure for one device does not
// cancel or roll back another. In dry-run mode the events are only logged.
func Emit(ctx context.Context, p Platform, batches []types.DeviceEvents, dryRun bool) []types.DeviceOutcome {
	outcomes := make([]types.DeviceOutcome, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = emitDevice(ctx, p, batch, dryRun)
		}()
	}
	wg.Wait()
	return outcomes
}

func emitDevice(ctx context.Context, p Platform, batch types.DeviceEvents, dryRun bool) types.DeviceOutcome {
	ctx = log.WithAttrs(ctx, slog.String("device", string(batch.Role)), slog.String("deviceID", batch.DeviceID))
	outcome := types.DeviceOutcome{
		Role:     batch.Role,
		DeviceID: batch.DeviceID,
		Events:   len(batch.Events),
		DryRun:   dryRun,
	}

	if dryRun {
		log.Ctx(ctx).InfoContext(ctx, "dry run: not sending events", slog.Any("events", batch.Events))
		return outcome
	}

	if err := p.CreateEvents(ctx, batch.DeviceID, batch.Events); err != nil {
		err = &types.EmissionError{DeviceID: batch.DeviceID, Err: err}
		log.Ctx(ctx).ErrorContext(ctx, "failed to emit events", slog.Any("error", err))
		outcome.Err = err
		outcome.Error = err.Error()
		return outcome
	}
	log.Ctx(ctx).DebugContext(ctx, "emitted events", slog.Int("events", len(batch.Events)))
	return outcome
}
