package types

// Capability is a SmartThings capability we publish to.
type Capability string

const (
	CapabilityPowerMeter             Capability = "powerMeter"
	CapabilityEnergyMeter            Capability = "energyMeter"
	CapabilityPowerConsumptionReport Capability = "powerConsumptionReport"
)

const (
	UnitWatts        = "W"
	UnitKilowattHour = "kWh"
	UnitWattHour     = "Wh"
)

// Event is a single device event sent to SmartThings.
type Event struct {
	Component  string     `json:"component"`
	Capability Capability `json:"capability"`
	Attribute  string     `json:"attribute"`
	Value      any        `json:"value"`
	Unit       string     `json:"unit,omitempty"`
}

// PowerEvent returns a powerMeter event in watts.
func PowerEvent(component string, watts float64) Event {
	return Event{
		Component:  component,
		Capability: CapabilityPowerMeter,
		Attribute:  "power",
		Value:      watts,
		Unit:       UnitWatts,
	}
}

// EnergyEvent returns an energyMeter event in kWh.
func EnergyEvent(component string, kwh float64) Event {
	return Event{
		Component:  component,
		Capability: CapabilityEnergyMeter,
		Attribute:  "energy",
		Value:      kwh,
		Unit:       UnitKilowattHour,
	}
}

// ConsumptionEvent returns a powerConsumptionReport event.
func ConsumptionEvent(component string, record ConsumptionRecord) Event {
	return Event{
		Component:  component,
		Capability: CapabilityPowerConsumptionReport,
		Attribute:  "powerConsumption",
		Value:      record,
	}
}

// DeviceEvents are the events for a single device.
type DeviceEvents struct {
	Role     DeviceRole `json:"role"`
	DeviceID string     `json:"deviceID"`
	Events   []Event    `json:"events"`
}

// Devices holds the resolved SmartThings device IDs.
type Devices struct {
	HouseID string `json:"houseID"`
	SolarID string `json:"solarID"`
}

// ID returns the device ID for the role.
func (d Devices) ID(role DeviceRole) string {
	switch role {
	case DeviceRoleHouse:
		return d.HouseID
	case DeviceRoleSolar:
		return d.SolarID
	}
	return ""
}
