package platform

import (
	"encoding/json"
)

// AttributeState is the current value of a single capability attribute.
type AttributeState struct {
	Value     json.RawMessage `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// HasValue returns true if the attribute has a non-null value.
func (a AttributeState) HasValue() bool {
	return len(a.Value) > 0 && string(a.Value) != "null"
}

// CapabilityStatus maps attribute name to its state.
type CapabilityStatus map[string]AttributeState

// ComponentStatus maps capability name to its attributes.
type ComponentStatus map[string]CapabilityStatus

// DeviceStatus is the status tree returned by SmartThings for a device.
type DeviceStatus struct {
	Components map[string]ComponentStatus `json:"components"`
}

// Attribute returns the attribute state of a capability on a component.
func (c ComponentStatus) Attribute(capability, attribute string) (AttributeState, bool) {
	cs, ok := c[capability]
	if !ok {
		return AttributeState{}, false
	}
	a, ok := cs[attribute]
	if !ok || !a.HasValue() {
		return AttributeState{}, false
	}
	return a, true
}

// Device is a SmartThings device as returned by the device list.
type Device struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Label    string `json:"label"`
}

// DisplayName returns the label, falling back to the name.
func (d Device) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}
