package monitoring

import (
	"context"

	"github.com/raterudder/solarbridge/pkg/types"
)

// Fetcher retrieves the energy and power metrics for a window.
type Fetcher interface {
	// FetchMetrics returns exactly one sample for each category or an error.
	// It never substitutes a default for a missing category.
	FetchMetrics(ctx context.Context, window types.Window) (types.Metrics, error)
}
