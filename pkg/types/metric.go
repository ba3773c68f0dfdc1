package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category identifies which flow of energy a metric sample describes.
type Category string

const (
	CategoryProduction  Category = "production"
	CategoryConsumption Category = "consumption"
	CategoryImport      Category = "import"
	CategoryExport      Category = "export"
)

// Categories lists every category a complete set of metrics must contain.
var Categories = []Category{
	CategoryProduction,
	CategoryConsumption,
	CategoryImport,
	CategoryExport,
}

// Valid returns true if c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryProduction, CategoryConsumption, CategoryImport, CategoryExport:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown categories so a bad device mapping fails at
// startup instead of at the first run.
func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !Category(s).Valid() {
		return fmt.Errorf("unknown category: %q", s)
	}
	*c = Category(s)
	return nil
}

// CategoryFromMeterType converts a SolarEdge meter type into a Category. The
// second return is false for meter types we don't track (like SelfConsumption).
func CategoryFromMeterType(meterType string) (Category, bool) {
	switch meterType {
	case "Production":
		return CategoryProduction, true
	case "Consumption":
		return CategoryConsumption, true
	case "Purchased":
		return CategoryImport, true
	case "FeedIn":
		return CategoryExport, true
	}
	return "", false
}

// MetricSample is the energy delta and average power for a single category over
// a window.
type MetricSample struct {
	Category       Category  `json:"category"`
	EnergyDeltaKWH float64   `json:"energyDeltaKWH"`
	AveragePowerW  float64   `json:"averagePowerW"`
	WindowStart    time.Time `json:"windowStart"`
	WindowEnd      time.Time `json:"windowEnd"`
}

// Metrics holds one sample per category.
type Metrics map[Category]MetricSample

// Require returns the sample for the category or a MissingMetricError.
func (m Metrics) Require(c Category) (MetricSample, error) {
	s, ok := m[c]
	if !ok {
		return MetricSample{}, &MissingMetricError{Category: c}
	}
	return s, nil
}

// Validate makes sure every category is present and no energy delta is
// negative.
func (m Metrics) Validate() error {
	for _, c := range Categories {
		s, err := m.Require(c)
		if err != nil {
			return err
		}
		if s.EnergyDeltaKWH < 0 {
			return fmt.Errorf("%w: negative energy delta for %s: %f", ErrInvalidMetric, c, s.EnergyDeltaKWH)
		}
	}
	return nil
}
