package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/types"
)

// StaticDirectory returns fixed device IDs.
type StaticDirectory types.Devices

// Devices implements Directory.
func (d StaticDirectory) Devices(ctx context.Context) (types.Devices, error) {
	devices := types.Devices(d)
	if devices.HouseID == "" || devices.SolarID == "" {
		return types.Devices{}, errors.New("house and solar device ids are required")
	}
	return devices, nil
}

// LabelDirectory finds the devices in a location by their label. Once found
// the IDs are cached since the devices are created once when the app is
// installed.
type LabelDirectory struct {
	platform   Platform
	locationID string
	houseLabel string
	solarLabel string

	mu     sync.Mutex
	cached types.Devices
}

// NewLabelDirectory returns a LabelDirectory.
func NewLabelDirectory(p Platform, locationID, houseLabel, solarLabel string) *LabelDirectory {
	return &LabelDirectory{
		platform:   p,
		locationID: locationID,
		houseLabel: houseLabel,
		solarLabel: solarLabel,
	}
}

// Devices implements Directory.
func (d *LabelDirectory) Devices(ctx context.Context) (types.Devices, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached.HouseID != "" && d.cached.SolarID != "" {
		return d.cached, nil
	}

	list, err := d.platform.ListDevices(ctx, d.locationID)
	if err != nil {
		return types.Devices{}, fmt.Errorf("failed to list devices: %w", err)
	}

	var found types.Devices
	for _, dev := range list {
		name := dev.DisplayName()
		switch {
		case strings.EqualFold(name, d.houseLabel):
			if found.HouseID != "" && found.HouseID != dev.DeviceID {
				return types.Devices{}, fmt.Errorf("multiple devices labeled %q", d.houseLabel)
			}
			found.HouseID = dev.DeviceID
		case strings.EqualFold(name, d.solarLabel):
			if found.SolarID != "" && found.SolarID != dev.DeviceID {
				return types.Devices{}, fmt.Errorf("multiple devices labeled %q", d.solarLabel)
			}
			found.SolarID = dev.DeviceID
		}
	}
	if found.HouseID == "" {
		return types.Devices{}, fmt.Errorf("no device labeled %q", d.houseLabel)
	}
	if found.SolarID == "" {
		return types.Devices{}, fmt.Errorf("no device labeled %q", d.solarLabel)
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"resolved devices",
		slog.String("houseID", found.HouseID),
		slog.String("solarID", found.SolarID),
	)
	d.cached = found
	return found, nil
}
