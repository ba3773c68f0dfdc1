package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/platform"
	"github.com/raterudder/solarbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

func deviceStatus(t *testing.T, raw string) platform.DeviceStatus {
	t.Helper()
	var s platform.DeviceStatus
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return s
}

const testHouseStatus = `{"components": {
	"main": {"energyMeter": {"energy": {"value": 100, "unit": "kWh"}}},
	"component1": {"energyMeter": {"energy": {"value": 50, "unit": "kWh"}}},
	"component2": {"energyMeter": {"energy": {"value": 20, "unit": "kWh"}}}
}}`

const testSolarStatus = `{"components": {
	"main": {"energyMeter": {"energy": {"value": 300, "unit": "kWh"}}}
}}`

func windowMetrics(w types.Window) types.Metrics {
	sample := func(c types.Category, kwh, watts float64) types.MetricSample {
		return types.MetricSample{Category: c, EnergyDeltaKWH: kwh, AveragePowerW: watts, WindowStart: w.Start, WindowEnd: w.End}
	}
	return types.Metrics{
		types.CategoryProduction:  sample(types.CategoryProduction, 1.5, 6000),
		types.CategoryConsumption: sample(types.CategoryConsumption, 0.5, 2000),
		types.CategoryImport:      sample(types.CategoryImport, 2, 500),
		types.CategoryExport:      sample(types.CategoryExport, 3, 4500),
	}
}

func eventFor(events []types.Event, component string, capability types.Capability) (types.Event, bool) {
	for _, e := range events {
		if e.Component == component && e.Capability == capability {
			return e, true
		}
	}
	return types.Event{}, false
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	window := types.SelectWindow(testNow, 15*time.Minute)

	t.Run("Success", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(windowMetrics(window), nil)
		ts.platform.On("GetStatus", mock.Anything, "house-1").Return(deviceStatus(t, testHouseStatus), nil)
		ts.platform.On("GetStatus", mock.Anything, "solar-1").Return(deviceStatus(t, testSolarStatus), nil)

		var houseEvents, solarEvents []types.Event
		ts.platform.On("CreateEvents", mock.Anything, "house-1", mock.Anything).Run(func(args mock.Arguments) {
			houseEvents = args.Get(2).([]types.Event)
		}).Return(nil).Once()
		ts.platform.On("CreateEvents", mock.Anything, "solar-1", mock.Anything).Run(func(args mock.Arguments) {
			solarEvents = args.Get(2).([]types.Event)
		}).Return(nil).Once()

		report, err := ts.Update(ctx)
		require.NoError(t, err)
		ts.platform.AssertExpectations(t)

		assert.True(t, report.OK())
		assert.Equal(t, window, report.Window)
		require.Len(t, report.Devices, 2)

		report1, ok := eventFor(houseEvents, "main", types.CapabilityPowerConsumptionReport)
		require.True(t, ok)
		assert.Equal(t, types.ConsumptionRecord{
			PowerW:         500,
			EnergyKWH:      102,
			DeltaEnergyKWH: 2,
			Start:          window.Start,
			End:            window.End,
		}, report1.Value)

		export, ok := eventFor(houseEvents, "component1", types.CapabilityEnergyMeter)
		require.True(t, ok)
		assert.Equal(t, 53.0, export.Value)

		solar, ok := eventFor(solarEvents, "main", types.CapabilityEnergyMeter)
		require.True(t, ok)
		assert.Equal(t, 301.5, solar.Value)

		power, ok := eventFor(solarEvents, "main", types.CapabilityPowerMeter)
		require.True(t, ok)
		assert.Equal(t, 6000.0, power.Value)
	})

	t.Run("Missing Metric Aborts", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(nil, &types.MissingMetricError{Category: types.CategoryExport, Source: "powerDetails"})
		ts.platform.On("GetStatus", mock.Anything, mock.Anything).Return(deviceStatus(t, testHouseStatus), nil).Maybe()

		report, err := ts.Update(ctx)
		require.Error(t, err)
		var mme *types.MissingMetricError
		assert.True(t, errors.As(err, &mme))
		assert.Empty(t, report.Devices)
		ts.platform.AssertNotCalled(t, "CreateEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("State Unavailable Aborts", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(windowMetrics(window), nil).Maybe()
		ts.platform.On("GetStatus", mock.Anything, "house-1").Return(deviceStatus(t, `{"components": {"main": {}}}`), nil)
		ts.platform.On("GetStatus", mock.Anything, "solar-1").Return(deviceStatus(t, testSolarStatus), nil)

		_, err := ts.Update(ctx)
		require.Error(t, err)
		var sue *types.StateUnavailableError
		require.True(t, errors.As(err, &sue))
		assert.Equal(t, "component1", sue.Component)
		ts.platform.AssertNotCalled(t, "CreateEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Solar Emission Failure", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(windowMetrics(window), nil)
		ts.platform.On("GetStatus", mock.Anything, "house-1").Return(deviceStatus(t, testHouseStatus), nil)
		ts.platform.On("GetStatus", mock.Anything, "solar-1").Return(deviceStatus(t, testSolarStatus), nil)
		ts.platform.On("CreateEvents", mock.Anything, "house-1", mock.Anything).Return(nil).Once()
		ts.platform.On("CreateEvents", mock.Anything, "solar-1", mock.Anything).Return(&types.UpstreamError{Service: "smartthings", Op: "createEvents", StatusCode: 500}).Once()

		report, err := ts.Update(ctx)
		require.Error(t, err)
		ts.platform.AssertExpectations(t)

		house, ok := report.Outcome(types.DeviceRoleHouse)
		require.True(t, ok)
		assert.True(t, house.OK(), "house emission should be attempted and reported separately")

		solar, ok := report.Outcome(types.DeviceRoleSolar)
		require.True(t, ok)
		assert.False(t, solar.OK())
		var ee *types.EmissionError
		assert.True(t, errors.As(solar.Err, &ee))
	})

	t.Run("Directory Failure", func(t *testing.T) {
		ts := newTestServer()
		ts.directory.ExpectedCalls = nil
		ts.directory.On("Devices", mock.Anything).Return(types.Devices{}, errors.New("no devices"))

		_, err := ts.Update(ctx)
		assert.ErrorContains(t, err, "no devices")
		ts.fetcher.AssertNotCalled(t, "FetchMetrics", mock.Anything, mock.Anything)
	})

	t.Run("Dry Run", func(t *testing.T) {
		ts := newTestServer()
		ts.dryRun = true
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(windowMetrics(window), nil)
		ts.platform.On("GetStatus", mock.Anything, "house-1").Return(deviceStatus(t, testHouseStatus), nil)
		ts.platform.On("GetStatus", mock.Anything, "solar-1").Return(deviceStatus(t, testSolarStatus), nil)

		report, err := ts.Update(ctx)
		require.NoError(t, err)
		assert.True(t, report.OK())
		ts.platform.AssertNotCalled(t, "CreateEvents", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleUpdate(t *testing.T) {
	window := types.SelectWindow(testNow, 15*time.Minute)

	t.Run("OK", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(windowMetrics(window), nil)
		ts.platform.On("GetStatus", mock.Anything, "house-1").Return(deviceStatus(t, testHouseStatus), nil)
		ts.platform.On("GetStatus", mock.Anything, "solar-1").Return(deviceStatus(t, testSolarStatus), nil)
		ts.platform.On("CreateEvents", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		ts.setupHandler().ServeHTTP(w, httptest.NewRequest("POST", "/api/update", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Devices []struct {
				Role   string `json:"role"`
				Events int    `json:"events"`
				Error  string `json:"error"`
			} `json:"devices"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Devices, 2)
		assert.Equal(t, "house", body.Devices[0].Role)
		assert.Equal(t, 7, body.Devices[0].Events)
		assert.Equal(t, 3, body.Devices[1].Events)
	})

	t.Run("Partial Failure", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(windowMetrics(window), nil)
		ts.platform.On("GetStatus", mock.Anything, "house-1").Return(deviceStatus(t, testHouseStatus), nil)
		ts.platform.On("GetStatus", mock.Anything, "solar-1").Return(deviceStatus(t, testSolarStatus), nil)
		ts.platform.On("CreateEvents", mock.Anything, "house-1", mock.Anything).Return(errors.New("boom"))
		ts.platform.On("CreateEvents", mock.Anything, "solar-1", mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		ts.setupHandler().ServeHTTP(w, httptest.NewRequest("POST", "/api/update", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "boom")
	})

	t.Run("Upstream Failure", func(t *testing.T) {
		ts := newTestServer()
		ts.fetcher.On("FetchMetrics", mock.Anything, window).Return(nil, &types.UpstreamError{Service: "solaredge", Op: "energyDetails", StatusCode: 429})
		ts.platform.On("GetStatus", mock.Anything, mock.Anything).Return(deviceStatus(t, testHouseStatus), nil).Maybe()

		w := httptest.NewRecorder()
		ts.setupHandler().ServeHTTP(w, httptest.NewRequest("POST", "/api/update", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "status 429")
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		ts := newTestServer()
		w := httptest.NewRecorder()
		ts.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/update", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
