package types

import (
	"encoding/json"
	"time"
)

// ConsumptionRecord is the value of a powerConsumptionReport.powerConsumption
// attribute.
type ConsumptionRecord struct {
	PowerW         float64   `json:"power"`
	EnergyKWH      float64   `json:"energy"`
	DeltaEnergyKWH float64   `json:"deltaEnergy"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// consumptionTimeFormat matches what SmartThings shows for reports (UTC with
// milliseconds).
const consumptionTimeFormat = "2006-01-02T15:04:05.000Z"

// MarshalJSON formats the timestamps in UTC with millisecond precision.
func (r ConsumptionRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PowerW         float64 `json:"power"`
		EnergyKWH      float64 `json:"energy"`
		DeltaEnergyKWH float64 `json:"deltaEnergy"`
		Start          string  `json:"start"`
		End            string  `json:"end"`
	}{
		PowerW:         r.PowerW,
		EnergyKWH:      r.EnergyKWH,
		DeltaEnergyKWH: r.DeltaEnergyKWH,
		Start:          r.Start.UTC().Format(consumptionTimeFormat),
		End:            r.End.UTC().Format(consumptionTimeFormat),
	})
}

// ComponentState is the cumulative state of a single device component as
// recorded by SmartThings.
type ComponentState struct {
	ComponentID         string             `json:"componentID"`
	CumulativeEnergyKWH float64            `json:"cumulativeEnergyKWH"`
	LastConsumption     *ConsumptionRecord `json:"lastConsumption,omitempty"`
}

// States holds component states keyed by StateKey.
type States map[string]ComponentState

// StateKey returns the key used for a component of a device in States.
func StateKey(role DeviceRole, component string) string {
	return string(role) + "/" + component
}

// Get returns the state for the component, if any.
func (s States) Get(role DeviceRole, component string) (ComponentState, bool) {
	cs, ok := s[StateKey(role, component)]
	return cs, ok
}

// Set stores the state for the component.
func (s States) Set(role DeviceRole, cs ComponentState) {
	s[StateKey(role, cs.ComponentID)] = cs
}
