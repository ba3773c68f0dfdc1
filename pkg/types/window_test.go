package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 15, 0, 0, time.UTC)

	t.Run("Default", func(t *testing.T) {
		w := SelectWindow(now, 0)
		assert.Equal(t, now.Add(-15*time.Minute), w.Start)
		assert.Equal(t, now, w.End)
		assert.Equal(t, DefaultWindowLength, w.Duration())
	})

	t.Run("Custom", func(t *testing.T) {
		w := SelectWindow(now, time.Hour)
		assert.Equal(t, time.Date(2026, 6, 1, 11, 15, 0, 0, time.UTC), w.Start)
		assert.Equal(t, time.Hour, w.Duration())
	})

	t.Run("Negative", func(t *testing.T) {
		w := SelectWindow(now, -time.Minute)
		assert.Equal(t, DefaultWindowLength, w.Duration())
	})
}

func TestSolarEdgeParams(t *testing.T) {
	w := Window{
		Start: time.Date(2026, 1, 5, 21, 45, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 22, 0, 0, 0, time.UTC),
	}

	t.Run("UTC", func(t *testing.T) {
		params := w.SolarEdgeParams(nil)
		assert.Equal(t, "2026-01-05 21:45:00", params.Get("startTime"))
		assert.Equal(t, "2026-01-05 22:00:00", params.Get("endTime"))
	})

	t.Run("Site Timezone", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		params := w.SolarEdgeParams(loc)
		assert.Equal(t, "2026-01-05 16:45:00", params.Get("startTime"))
		assert.Equal(t, "2026-01-05 17:00:00", params.Get("endTime"))
	})
}
