package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/metrics"
	"github.com/raterudder/solarbridge/pkg/platform"
	"github.com/raterudder/solarbridge/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Update runs a single reconciliation: it fetches the window's metrics and
// the current device state, computes the new totals and sends the events for
// each device. An error is returned if anything failed before emission. Per
// device emission results are in the report.
//
// Update does not guard against concurrent calls. Callers must make sure only
// one update runs at a time or deltas can be applied twice.
func (s *Server) Update(ctx context.Context) (types.RunReport, error) {
	started := time.Now()
	report, err := s.update(ctx)
	if err == nil && !report.OK() {
		err = errors.New("emission failed")
	}
	metrics.ObserveRun(err, time.Since(started))
	return report, err
}

func (s *Server) update(ctx context.Context) (types.RunReport, error) {
	window := types.SelectWindow(s.now(), s.windowLength)
	report := types.RunReport{Window: window}
	ctx = log.WithAttrs(ctx, slog.Time("windowEnd", window.End))

	log.Ctx(ctx).DebugContext(ctx, "update: starting", slog.Time("windowStart", window.Start))

	devices, err := s.directory.Devices(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to resolve devices: %w", err)
	}

	var m types.Metrics
	var states types.States
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		started := time.Now()
		var err error
		m, err = s.fetcher.FetchMetrics(gctx, window)
		metrics.ObserveFetch("solaredge", err, time.Since(started))
		if err != nil {
			return fmt.Errorf("failed to fetch metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		started := time.Now()
		var err error
		states, err = platform.LoadStates(gctx, s.platform, devices, s.mapping)
		metrics.ObserveFetch("smartthings", err, time.Since(started))
		if err != nil {
			return fmt.Errorf("failed to load device states: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "update: fetch failed", slog.Any("error", err))
		return report, err
	}

	res, err := s.controller.Reconcile(ctx, s.mapping, states, m, window)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "update: reconcile failed", slog.Any("error", err))
		return report, fmt.Errorf("failed to reconcile: %w", err)
	}

	batches := make([]types.DeviceEvents, 0, len(types.DeviceRoles))
	for _, role := range types.DeviceRoles {
		batches = append(batches, types.DeviceEvents{
			Role:     role,
			DeviceID: devices.ID(role),
			Events:   res.Events(role),
		})
	}
	report.Devices = platform.Emit(ctx, s.platform, batches, s.dryRun)

	for _, o := range report.Devices {
		metrics.IncEmission(string(o.Role), o.Err)
		if !o.OK() {
			continue
		}
		for _, cm := range s.mapping.Components(o.Role) {
			if cs, ok := res.States.Get(o.Role, cm.Component); ok {
				metrics.SetCumulative(string(o.Role), cm.Component, cs.CumulativeEnergyKWH)
			}
		}
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"update: finished",
		slog.Float64("houseWatts", m[types.CategoryConsumption].AveragePowerW),
		slog.Float64("solarWatts", m[types.CategoryProduction].AveragePowerW),
		slog.Float64("fromGridKWH", m[types.CategoryImport].EnergyDeltaKWH),
		slog.Float64("toGridKWH", m[types.CategoryExport].EnergyDeltaKWH),
		slog.Bool("ok", report.OK()),
	)
	return report, nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := s.Update(ctx)
	if err != nil && len(report.Devices) == 0 {
		// nothing was emitted, the run aborted before reconciling
		code := http.StatusInternalServerError
		var ue *types.UpstreamError
		var mme *types.MissingMetricError
		var sue *types.StateUnavailableError
		if errors.As(err, &ue) || errors.As(err, &mme) || errors.As(err, &sue) {
			code = http.StatusBadGateway
		}
		writeJSONError(w, err.Error(), code)
		return
	}

	code := http.StatusOK
	if !report.OK() {
		code = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to write update response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}
