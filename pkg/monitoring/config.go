package monitoring

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the SolarEdge fetcher based on flags.
func Configured() Fetcher {
	apiURL := lflag.String("solaredge-api-url", "https://monitoringapi.solaredge.com", "URL for the SolarEdge monitoring API")
	siteID := lflag.String("solaredge-site-id", "", "SolarEdge site ID")
	apiKey := lflag.String("solaredge-api-key", "", "SolarEdge API key")
	timezone := lflag.String("solaredge-timezone", "Local", "Timezone of the SolarEdge site, used to format start/end times")
	timeout := lflag.Duration("solaredge-timeout", 0, "Timeout for SolarEdge requests (default 30s)")

	var p struct{ Fetcher }

	lflag.Do(func() {
		s, err := NewSolarEdge(SolarEdgeConfig{
			BaseURL:  *apiURL,
			SiteID:   *siteID,
			APIKey:   *apiKey,
			Timezone: *timezone,
			Timeout:  *timeout,
		})
		if err != nil {
			panic(fmt.Sprintf("solaredge validation failed: %v", err))
		}
		p.Fetcher = s
	})

	return &p
}
