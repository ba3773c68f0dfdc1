package types

import (
	"net/url"
	"time"
)

// DefaultWindowLength is how far back each run looks.
const DefaultWindowLength = 15 * time.Minute

// SolarEdgeTimeFormat is the only date-time format the monitoring API accepts.
// It must be a 24-hour clock with a 4-digit year.
const SolarEdgeTimeFormat = "2006-01-02 15:04:05"

// Window is the interval a run reports on.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SelectWindow returns the window ending at now. A non-positive length uses
// DefaultWindowLength.
func SelectWindow(now time.Time, length time.Duration) Window {
	if length <= 0 {
		length = DefaultWindowLength
	}
	return Window{
		Start: now.Add(-length),
		End:   now,
	}
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// SolarEdgeParams returns the startTime and endTime query parameters for the
// window in the site's timezone.
func (w Window) SolarEdgeParams(loc *time.Location) url.Values {
	if loc == nil {
		loc = time.UTC
	}
	params := url.Values{}
	params.Set("startTime", w.Start.In(loc).Format(SolarEdgeTimeFormat))
	params.Set("endTime", w.End.In(loc).Format(SolarEdgeTimeFormat))
	return params
}
