package platform

import (
	"context"

	"github.com/raterudder/solarbridge/pkg/types"
)

// Platform defines the SmartThings calls we depend on.
type Platform interface {
	// GetStatus returns the full status tree of a device.
	GetStatus(ctx context.Context, deviceID string) (DeviceStatus, error)

	// CreateEvents publishes events for a device.
	CreateEvents(ctx context.Context, deviceID string, events []types.Event) error

	// ListDevices returns the devices in a location.
	ListDevices(ctx context.Context, locationID string) ([]Device, error)
}

// Directory resolves the house meter and solar panel devices.
type Directory interface {
	Devices(ctx context.Context) (types.Devices, error)
}
