package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/raterudder/solarbridge/pkg/common"
	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/types"
	"golang.org/x/sync/errgroup"
)

const solarEdgeService = "solaredge"

// SolarEdge implements the Fetcher interface for the SolarEdge monitoring API.
type SolarEdge struct {
	client   *http.Client
	baseURL  string
	siteID   string
	apiKey   string
	location *time.Location
}

// SolarEdgeConfig holds everything needed to talk to the monitoring API.
type SolarEdgeConfig struct {
	BaseURL string
	SiteID  string
	APIKey  string
	// Timezone is the site's timezone, which SolarEdge interprets start and
	// end times in.
	Timezone string
	Timeout  time.Duration
}

// NewSolarEdge returns a SolarEdge client for the given config.
func NewSolarEdge(cfg SolarEdgeConfig) (*SolarEdge, error) {
	s := &SolarEdge{
		baseURL: cfg.BaseURL,
		siteID:  cfg.SiteID,
		apiKey:  cfg.APIKey,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s.client = common.HTTPClient(cfg.Timeout)

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	s.location = loc
	return s, nil
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load solaredge timezone (%s): %w", tz, err)
	}
	return loc, nil
}

// Validate ensures the configuration is valid.
func (s *SolarEdge) Validate() error {
	if s.baseURL == "" {
		return errors.New("solaredge-api-url is required")
	}
	if _, err := url.Parse(s.baseURL); err != nil {
		return fmt.Errorf("failed to parse solaredge url (%s): %w", s.baseURL, err)
	}
	if s.siteID == "" {
		return errors.New("solaredge-site-id is required")
	}
	if s.apiKey == "" {
		return errors.New("solaredge-api-key is required")
	}
	return nil
}

type solarEdgeValue struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type solarEdgeMeter struct {
	Type   string           `json:"type"`
	Values []solarEdgeValue `json:"values"`
}

type solarEdgeDetails struct {
	TimeUnit string           `json:"timeUnit"`
	Unit     string           `json:"unit"`
	Meters   []solarEdgeMeter `json:"meters"`
}

type energyDetailsResponse struct {
	EnergyDetails *solarEdgeDetails `json:"energyDetails"`
}

type powerDetailsResponse struct {
	PowerDetails *solarEdgeDetails `json:"powerDetails"`
}

// FetchMetrics gets the energy deltas and average power for the window and
// merges them into one sample per category.
func (s *SolarEdge) FetchMetrics(ctx context.Context, window types.Window) (types.Metrics, error) {
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetching solaredge metrics",
		slog.Time("start", window.Start),
		slog.Time("end", window.End),
	)

	var energy, power map[types.Category]float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		energy, err = s.fetchEnergyDeltas(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		power, err = s.fetchPowerAverages(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics := make(types.Metrics, len(types.Categories))
	for _, c := range types.Categories {
		e, ok := energy[c]
		if !ok {
			return nil, &types.MissingMetricError{Category: c, Source: "energyDetails"}
		}
		p, ok := power[c]
		if !ok {
			return nil, &types.MissingMetricError{Category: c, Source: "powerDetails"}
		}
		metrics[c] = types.MetricSample{
			Category:       c,
			EnergyDeltaKWH: e,
			AveragePowerW:  p,
			WindowStart:    window.Start,
			WindowEnd:      window.End,
		}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"got solaredge metrics",
		slog.Float64("productionKWH", metrics[types.CategoryProduction].EnergyDeltaKWH),
		slog.Float64("consumptionKWH", metrics[types.CategoryConsumption].EnergyDeltaKWH),
		slog.Float64("importKWH", metrics[types.CategoryImport].EnergyDeltaKWH),
		slog.Float64("exportKWH", metrics[types.CategoryExport].EnergyDeltaKWH),
	)
	return metrics, nil
}

// fetchEnergyDeltas returns the energy produced/consumed per category in kWh.
// When the window spans more than one time unit the values are summed.
func (s *SolarEdge) fetchEnergyDeltas(ctx context.Context, window types.Window) (map[types.Category]float64, error) {
	params := window.SolarEdgeParams(s.location)
	var res energyDetailsResponse
	if err := s.get(ctx, "energyDetails", params, &res); err != nil {
		return nil, err
	}
	if res.EnergyDetails == nil {
		return nil, &types.UpstreamError{Service: solarEdgeService, Op: "energyDetails", Err: errors.New("response missing energyDetails")}
	}

	multiplier, err := energyUnitToKWH(res.EnergyDetails.Unit)
	if err != nil {
		return nil, err
	}

	out := make(map[types.Category]float64, len(types.Categories))
	for _, m := range res.EnergyDetails.Meters {
		c, ok := types.CategoryFromMeterType(m.Type)
		if !ok {
			continue
		}
		var sum float64
		var found bool
		for _, v := range m.Values {
			if v.Value == nil {
				continue
			}
			found = true
			sum += *v.Value
		}
		if !found {
			// no values at all is not the same as 0
			continue
		}
		if sum < 0 {
			log.Ctx(ctx).WarnContext(ctx, "negative energy from solaredge", slog.String("meter", m.Type), slog.Float64("value", sum))
			sum = 0
		}
		out[c] = sum * multiplier
	}
	return out, nil
}

// fetchPowerAverages returns the average power per category in W.
func (s *SolarEdge) fetchPowerAverages(ctx context.Context, window types.Window) (map[types.Category]float64, error) {
	params := window.SolarEdgeParams(s.location)
	var res powerDetailsResponse
	if err := s.get(ctx, "powerDetails", params, &res); err != nil {
		return nil, err
	}
	if res.PowerDetails == nil {
		return nil, &types.UpstreamError{Service: solarEdgeService, Op: "powerDetails", Err: errors.New("response missing powerDetails")}
	}

	multiplier, err := powerUnitToW(res.PowerDetails.Unit)
	if err != nil {
		return nil, err
	}

	out := make(map[types.Category]float64, len(types.Categories))
	for _, m := range res.PowerDetails.Meters {
		c, ok := types.CategoryFromMeterType(m.Type)
		if !ok {
			continue
		}
		var sum float64
		var n int
		for _, v := range m.Values {
			if v.Value == nil {
				continue
			}
			sum += *v.Value
			n++
		}
		if n == 0 {
			continue
		}
		out[c] = sum / float64(n) * multiplier
	}
	return out, nil
}

func energyUnitToKWH(unit string) (float64, error) {
	switch unit {
	case "Wh", "":
		// SolarEdge defaults to Wh
		return 0.001, nil
	case "kWh":
		return 1, nil
	case "MWh":
		return 1000, nil
	}
	return 0, fmt.Errorf("%w: unknown energy unit %q", types.ErrInvalidMetric, unit)
}

func powerUnitToW(unit string) (float64, error) {
	switch unit {
	case "W", "":
		return 1, nil
	case "kW":
		return 1000, nil
	}
	return 0, fmt.Errorf("%w: unknown power unit %q", types.ErrInvalidMetric, unit)
}

func (s *SolarEdge) newGetRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, "site", s.siteID, endpoint)
	if err != nil {
		return nil, err
	}

	params.Set("api_key", s.apiKey)
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (s *SolarEdge) get(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	req, err := s.newGetRequest(ctx, endpoint, params)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// don't include the url since it has the api key in it
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return &types.UpstreamError{Service: solarEdgeService, Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.UpstreamError{Service: solarEdgeService, Op: endpoint, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"solaredge api error",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return &types.UpstreamError{Service: solarEdgeService, Op: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(bytes.NewReader(body)).Decode(dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode solaredge response", slog.Any("error", err), slog.String("body", string(body)))
		return &types.UpstreamError{Service: solarEdgeService, Op: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
