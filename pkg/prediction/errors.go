package prediction

import "errors"

// ErrNoHistoricData is returned when the youngest historical window has no
// native resolution, i.e. the store holds nothing usable for the metric.
// It is propagated to the caller and never retried internally.
var ErrNoHistoricData = errors.New("got no historic metrics")

// ConfigurationError reports invalid prediction parameters. It is returned
// before any I/O happens.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid prediction configuration: " + e.Reason
}
