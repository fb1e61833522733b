package graph

import "time"

// Retry strategy for an action
type Retry struct {
	Type       string  `json:"type,omitempty" yaml:"type,omitempty"` // fixed, exponential, none
	MaxRetries int     `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	Delay      string  `json:"delay,omitempty" yaml:"delay,omitempty"`           // base delay (duration string)
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"` // exponential multiplier (>1)
	MaxDelay   string  `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
}

// Enabled reports whether at least one retry is allowed.
func (r *Retry) Enabled() bool {
	return r != nil && r.Type != "none" && r.MaxRetries > 0
}

// IsExponential reports whether the delay grows between attempts.
func (r *Retry) IsExponential() bool {
	return r != nil && r.Type == "exponential"
}

// DelayDuration returns the base delay, defaulting to one second.
func (r *Retry) DelayDuration() time.Duration {
	if d, err := parseDuration(r.Delay); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// MaxDelayDuration returns the delay cap or zero.
func (r *Retry) MaxDelayDuration() time.Duration {
	d, _ := parseDuration(r.MaxDelay)
	return d
}
