package platform

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solarbridge/pkg/types"
)

// Configured sets up the SmartThings client and device directory based on
// flags. Device IDs take precedence over labels.
func Configured() (Platform, Directory) {
	apiURL := lflag.String("smartthings-api-url", "https://api.smartthings.com/v1", "URL for the SmartThings API")
	token := lflag.String("smartthings-token", "", "SmartThings bearer token")
	timeout := lflag.Duration("smartthings-timeout", 0, "Timeout for SmartThings requests (default 30s)")
	locationID := lflag.String("smartthings-location-id", "", "SmartThings location to look up devices by label in")
	houseID := lflag.String("house-device-id", "", "Device ID of the house power meter")
	solarID := lflag.String("solar-device-id", "", "Device ID of the solar panel")
	houseLabel := lflag.String("house-device-label", "House Power Meter", "Label of the house power meter, used when house-device-id is empty")
	solarLabel := lflag.String("solar-device-label", "Solar Panels", "Label of the solar panel, used when solar-device-id is empty")

	var p struct{ Platform }
	var d struct{ Directory }

	lflag.Do(func() {
		st, err := NewSmartThings(*apiURL, *token, *timeout)
		if err != nil {
			panic(fmt.Sprintf("smartthings validation failed: %v", err))
		}
		p.Platform = st

		if *houseID != "" && *solarID != "" {
			d.Directory = StaticDirectory(types.Devices{HouseID: *houseID, SolarID: *solarID})
			return
		}
		if *houseLabel == "" || *solarLabel == "" {
			panic("either house-device-id and solar-device-id or both device labels are required")
		}
		d.Directory = NewLabelDirectory(st, *locationID, *houseLabel, *solarLabel)
	})

	return &p, &d
}
