package prediction

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Levels methods. "absolute" bounds are threshold values (scaled by the
// levels factor); "relative" and "stdev" bounds are deviations from the
// reference average.
const (
	LevelsAbsolute = "absolute"
	LevelsRelative = "relative"
	LevelsStdev    = "stdev"
)

// LevelsSpec configures one pair of warn/crit bounds. It persists in the
// historical tuple form ["method", [warn, crit]].
type LevelsSpec struct {
	Method string
	Warn   float64
	Crit   float64
}

// Valid reports whether the spec names a known levels method.
func (l LevelsSpec) Valid() bool {
	switch l.Method {
	case LevelsAbsolute, LevelsRelative, LevelsStdev:
		return true
	}
	return false
}

// MarshalJSON encodes the spec as ["method", [warn, crit]].
func (l LevelsSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{l.Method, [2]float64{l.Warn, l.Crit}})
}

// UnmarshalJSON decodes the ["method", [warn, crit]] form.
func (l *LevelsSpec) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("levels spec must have 2 elements, got %d", len(raw))
	}

	if err := json.Unmarshal(raw[0], &l.Method); err != nil {
		return fmt.Errorf("invalid levels method: %w", err)
	}

	var bounds [2]float64
	if err := json.Unmarshal(raw[1], &bounds); err != nil {
		return fmt.Errorf("invalid levels bounds: %w", err)
	}
	l.Warn, l.Crit = bounds[0], bounds[1]
	return nil
}

// MinBound is a (warn, crit) floor applied to computed upper bounds.
type MinBound [2]float64

// Params holds the complete prediction configuration for one metric. The
// exact parameters used are persisted alongside each prediction; a cached
// prediction computed with different parameters is never reused.
type Params struct {
	// Period selects the partition scheme.
	Period PeriodName `json:"period"`

	// Horizon is how far back to gather historical slices, in days.
	Horizon int `json:"horizon"`

	// LevelsUpper and LevelsLower configure the alerting bounds derived
	// from the baseline. Either may be absent.
	LevelsUpper *LevelsSpec `json:"levels_upper,omitempty"`
	LevelsLower *LevelsSpec `json:"levels_lower,omitempty"`

	// LevelsUpperMin is an absolute floor applied to the computed upper
	// bounds.
	LevelsUpperMin *MinBound `json:"levels_upper_min,omitempty"`
}

// Validate checks the parameters before any I/O happens.
func (p Params) Validate() error {
	if _, err := PeriodFor(p.Period); err != nil {
		return err
	}
	if p.Horizon <= 0 {
		return &ConfigurationError{Reason: "horizon must be positive, got " + strconv.Itoa(p.Horizon)}
	}
	if p.LevelsUpper != nil && !p.LevelsUpper.Valid() {
		return &ConfigurationError{Reason: "unknown levels method " + strconv.Quote(p.LevelsUpper.Method)}
	}
	if p.LevelsLower != nil && !p.LevelsLower.Valid() {
		return &ConfigurationError{Reason: "unknown levels method " + strconv.Quote(p.LevelsLower.Method)}
	}
	return nil
}

// equalAfterRoundTrip compares two parameter sets by their serialized
// forms. Persisted parameters went through the same round trip, so this
// normalizes away representation differences.
func equalAfterRoundTrip(a, b Params) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}
