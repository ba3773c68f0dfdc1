package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullMetrics() Metrics {
	m := Metrics{}
	for _, c := range Categories {
		m[c] = MetricSample{Category: c, EnergyDeltaKWH: 1, AveragePowerW: 100}
	}
	return m
}

func TestCategoryFromMeterType(t *testing.T) {
	tests := []struct {
		meterType string
		want      Category
		ok        bool
	}{
		{"Production", CategoryProduction, true},
		{"Consumption", CategoryConsumption, true},
		{"Purchased", CategoryImport, true},
		{"FeedIn", CategoryExport, true},
		{"SelfConsumption", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.meterType, func(t *testing.T) {
			got, ok := CategoryFromMeterType(tt.meterType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryUnmarshalJSON(t *testing.T) {
	var c Category
	require.NoError(t, json.Unmarshal([]byte(`"export"`), &c))
	assert.Equal(t, CategoryExport, c)

	assert.Error(t, json.Unmarshal([]byte(`"battery"`), &c))
	assert.Error(t, json.Unmarshal([]byte(`5`), &c))
}

func TestMetricsValidate(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		assert.NoError(t, fullMetrics().Validate())
	})

	t.Run("Zero Delta", func(t *testing.T) {
		m := fullMetrics()
		m[CategoryExport] = MetricSample{Category: CategoryExport}
		assert.NoError(t, m.Validate())
	})

	t.Run("Missing", func(t *testing.T) {
		m := fullMetrics()
		delete(m, CategoryImport)
		err := m.Validate()
		var mme *MissingMetricError
		require.True(t, errors.As(err, &mme))
		assert.Equal(t, CategoryImport, mme.Category)
	})

	t.Run("Negative", func(t *testing.T) {
		m := fullMetrics()
		m[CategoryProduction] = MetricSample{Category: CategoryProduction, EnergyDeltaKWH: -0.1}
		assert.ErrorIs(t, m.Validate(), ErrInvalidMetric)
	})
}

func TestErrors(t *testing.T) {
	inner := errors.New("connection reset")
	ue := &UpstreamError{Service: "solaredge", Op: "powerDetails", Err: inner}
	assert.ErrorIs(t, ue, inner)
	assert.Equal(t, "solaredge powerDetails: connection reset", ue.Error())

	ue = &UpstreamError{Service: "smartthings", Op: "createEvents", StatusCode: 401}
	assert.Equal(t, "smartthings createEvents: status 401", ue.Error())

	ee := &EmissionError{DeviceID: "solar-1", Err: ue}
	var got *UpstreamError
	require.True(t, errors.As(ee, &got))
	assert.Equal(t, 401, got.StatusCode)

	assert.Equal(t, "missing export metric in powerDetails", (&MissingMetricError{Category: CategoryExport, Source: "powerDetails"}).Error())
}
