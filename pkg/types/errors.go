package types

import (
	"errors"
	"fmt"
)

// ErrInvalidMetric is returned when a sample has a value that can't be applied
// to a cumulative counter.
var ErrInvalidMetric = errors.New("invalid metric")

// UpstreamError is a transport or HTTP failure talking to SolarEdge or
// SmartThings.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Service, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MissingMetricError means an expected category was absent from a response.
type MissingMetricError struct {
	Category Category
	// Source is the response the category was missing from, if known.
	Source string
}

func (e *MissingMetricError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("missing %s metric in %s", e.Category, e.Source)
	}
	return fmt.Sprintf("missing %s metric", e.Category)
}

// StateUnavailableError means a device status is missing a component we map
// a category to.
type StateUnavailableError struct {
	DeviceID  string
	Component string
	Reason    string
}

func (e *StateUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("state unavailable for device %s component %s: %s", e.DeviceID, e.Component, e.Reason)
	}
	return fmt.Sprintf("state unavailable for device %s component %s", e.DeviceID, e.Component)
}

// EmissionError means events could not be delivered to a device.
type EmissionError struct {
	DeviceID string
	Err      error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("failed to emit events for device %s: %v", e.DeviceID, e.Err)
}

func (e *EmissionError) Unwrap() error {
	return e.Err
}
