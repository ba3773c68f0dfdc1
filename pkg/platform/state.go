package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/types"
	"golang.org/x/sync/errgroup"
)

// LoadStates fetches the status of both devices concurrently and projects
// every mapped component into a ComponentState. Components that exist but have
// never reported energy are left out so they are treated as a first run.
func LoadStates(ctx context.Context, p Platform, devices types.Devices, mapping types.DeviceMapping) (types.States, error) {
	for _, role := range types.DeviceRoles {
		if devices.ID(role) == "" {
			return nil, fmt.Errorf("no device id for %s", role)
		}
	}

	statuses := make([]DeviceStatus, len(types.DeviceRoles))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range types.DeviceRoles {
		deviceID := devices.ID(role)
		g.Go(func() error {
			status, err := p.GetStatus(gctx, deviceID)
			if err != nil {
				return fmt.Errorf("failed to get %s device status: %w", role, err)
			}
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	states := types.States{}
	for i, role := range types.DeviceRoles {
		projected, err := projectStates(devices.ID(role), statuses[i], mapping.Components(role))
		if err != nil {
			return nil, err
		}
		for _, cs := range projected {
			states.Set(role, cs)
		}
	}
	log.Ctx(ctx).DebugContext(ctx, "loaded component states", slog.Int("count", len(states)))
	return states, nil
}

// projectStates flattens a device status tree into component states for the
// mapped components.
func projectStates(deviceID string, status DeviceStatus, comps []types.ComponentMapping) ([]types.ComponentState, error) {
	out := make([]types.ComponentState, 0, len(comps))
	for _, cm := range comps {
		comp, ok := status.Components[cm.Component]
		if !ok {
			return nil, &types.StateUnavailableError{DeviceID: deviceID, Component: cm.Component, Reason: "component missing from status"}
		}

		cs := types.ComponentState{ComponentID: cm.Component}
		var found bool

		if a, ok := comp.Attribute(string(types.CapabilityEnergyMeter), "energy"); ok {
			kwh, err := energyAttributeKWH(a)
			if err != nil {
				return nil, &types.StateUnavailableError{DeviceID: deviceID, Component: cm.Component, Reason: err.Error()}
			}
			cs.CumulativeEnergyKWH = kwh
			found = true
		}

		if a, ok := comp.Attribute(string(types.CapabilityPowerConsumptionReport), "powerConsumption"); ok {
			record, err := parseConsumption(a.Value)
			if err != nil {
				return nil, &types.StateUnavailableError{DeviceID: deviceID, Component: cm.Component, Reason: err.Error()}
			}
			cs.LastConsumption = &record
			// the two counters should agree, but never go backwards if one lags
			cs.CumulativeEnergyKWH = math.Max(cs.CumulativeEnergyKWH, record.EnergyKWH)
			found = true
		}

		if !found {
			continue
		}
		if cs.CumulativeEnergyKWH < 0 || math.IsNaN(cs.CumulativeEnergyKWH) {
			return nil, &types.StateUnavailableError{DeviceID: deviceID, Component: cm.Component, Reason: fmt.Sprintf("invalid cumulative energy %f", cs.CumulativeEnergyKWH)}
		}
		out = append(out, cs)
	}
	return out, nil
}

func energyAttributeKWH(a AttributeState) (float64, error) {
	var v float64
	if err := json.Unmarshal(a.Value, &v); err != nil {
		return 0, fmt.Errorf("invalid energy value %s: %w", string(a.Value), err)
	}
	switch a.Unit {
	case types.UnitKilowattHour, "":
		return v, nil
	case types.UnitWattHour:
		return v / 1000, nil
	}
	return 0, fmt.Errorf("unknown energy unit %q", a.Unit)
}

type rawConsumption struct {
	Power       *float64 `json:"power"`
	Energy      *float64 `json:"energy"`
	DeltaEnergy *float64 `json:"deltaEnergy"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
}

func parseConsumption(raw json.RawMessage) (types.ConsumptionRecord, error) {
	var rc rawConsumption
	if err := json.Unmarshal(raw, &rc); err != nil {
		return types.ConsumptionRecord{}, fmt.Errorf("invalid powerConsumption value: %w", err)
	}
	if rc.Energy == nil {
		return types.ConsumptionRecord{}, fmt.Errorf("powerConsumption value has no energy")
	}

	record := types.ConsumptionRecord{EnergyKWH: *rc.Energy}
	if rc.Power != nil {
		record.PowerW = *rc.Power
	}
	if rc.DeltaEnergy != nil {
		record.DeltaEnergyKWH = *rc.DeltaEnergy
	}
	// timestamps are informational so a bad one isn't fatal
	if t, err := time.Parse(time.RFC3339Nano, rc.Start); err == nil {
		record.Start = t
	}
	if t, err := time.Parse(time.RFC3339Nano, rc.End); err == nil {
		record.End = t
	}
	return record, nil
}
