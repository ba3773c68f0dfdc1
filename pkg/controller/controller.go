package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/types"
)

// Result is the outcome of reconciling a window against the previous state.
type Result struct {
	States      types.States
	HouseEvents []types.Event
	SolarEvents []types.Event
}

// Events returns the events for the given role.
func (r Result) Events(role types.DeviceRole) []types.Event {
	switch role {
	case types.DeviceRoleHouse:
		return r.HouseEvents
	case types.DeviceRoleSolar:
		return r.SolarEvents
	}
	return nil
}

// Controller merges window metrics into the cumulative device state.
type Controller struct {
}

// NewController creates a new Controller.
func NewController() *Controller {
	return &Controller{}
}

// Reconcile adds each component's energy delta to its previous cumulative
// energy and builds the events to publish. It has no side effects and the
// passed states are not modified.
//
// Replaying the same window against states that already include it will count
// the delta twice; deduplication has to happen before calling Reconcile.
func (c *Controller) Reconcile(
	ctx context.Context,
	mapping types.DeviceMapping,
	states types.States,
	metrics types.Metrics,
	window types.Window,
) (Result, error) {
	// validate everything up front so we never return a partial result
	if err := metrics.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{
		States: make(types.States, len(states)),
	}
	for k, v := range states {
		res.States[k] = v
	}

	for _, role := range types.DeviceRoles {
		var events []types.Event
		for _, cm := range mapping.Components(role) {
			sample, err := metrics.Require(cm.Category)
			if err != nil {
				return Result{}, err
			}

			// first run for this component, start from 0
			var previous float64
			if prev, ok := states.Get(role, cm.Component); ok {
				previous = prev.CumulativeEnergyKWH
			}
			cumulative := previous + sample.EnergyDeltaKWH

			record := types.ConsumptionRecord{
				PowerW:         sample.AveragePowerW,
				EnergyKWH:      cumulative,
				DeltaEnergyKWH: sample.EnergyDeltaKWH,
				Start:          window.Start,
				End:            window.End,
			}

			if cm.Component == types.MainComponent {
				power, err := metrics.Require(cm.PowerSource())
				if err != nil {
					return Result{}, err
				}
				events = append(events, types.PowerEvent(cm.Component, power.AveragePowerW))
			}
			events = append(events,
				types.EnergyEvent(cm.Component, cumulative),
				types.ConsumptionEvent(cm.Component, record),
			)

			res.States.Set(role, types.ComponentState{
				ComponentID:         cm.Component,
				CumulativeEnergyKWH: cumulative,
				LastConsumption:     &record,
			})

			log.Ctx(ctx).DebugContext(
				ctx,
				"reconciled component",
				slog.String("device", string(role)),
				slog.String("component", cm.Component),
				slog.String("category", string(cm.Category)),
				slog.Float64("previousKWH", previous),
				slog.Float64("deltaKWH", sample.EnergyDeltaKWH),
				slog.Float64("cumulativeKWH", cumulative),
			)
		}

		switch role {
		case types.DeviceRoleHouse:
			res.HouseEvents = events
		case types.DeviceRoleSolar:
			res.SolarEvents = events
		default:
			return Result{}, fmt.Errorf("unknown device role: %s", role)
		}
	}

	return res, nil
}
