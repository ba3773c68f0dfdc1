package types

// DeviceOutcome is the result of emitting events to one device.
type DeviceOutcome struct {
	Role     DeviceRole `json:"role"`
	DeviceID string     `json:"deviceID"`
	Events   int        `json:"events"`
	DryRun   bool       `json:"dryRun,omitempty"`
	Error    string     `json:"error,omitempty"`

	// Err is the underlying error, kept for errors.As by callers.
	Err error `json:"-"`
}

// OK returns true if the events were delivered (or logged in dry-run).
func (o DeviceOutcome) OK() bool {
	return o.Err == nil
}

// RunReport summarizes a single update run.
type RunReport struct {
	Window  Window          `json:"window"`
	Devices []DeviceOutcome `json:"devices"`
}

// OK returns true only if every device succeeded.
func (r RunReport) OK() bool {
	for _, d := range r.Devices {
		if !d.OK() {
			return false
		}
	}
	return true
}

// Outcome returns the outcome for the role, if present.
func (r RunReport) Outcome(role DeviceRole) (DeviceOutcome, bool) {
	for _, d := range r.Devices {
		if d.Role == role {
			return d, true
		}
	}
	return DeviceOutcome{}, false
}
