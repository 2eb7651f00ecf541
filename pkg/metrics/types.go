package metrics

import "time"

// MetricID identifies a single monitored metric: one measured value
// of one service on one host.
type MetricID struct {
	Host    string `json:"host"`
	Service string `json:"service"`
	Metric  string `json:"metric"`
}

// String returns the canonical "host/service/metric" form of the ID.
func (id MetricID) String() string {
	return id.Host + "/" + id.Service + "/" + id.Metric
}

// Sample is a single measured data point for a metric.
type Sample struct {
	Host      string    `json:"host"`
	Service   string    `json:"service"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ID returns the metric identity of the sample.
func (s Sample) ID() MetricID {
	return MetricID{Host: s.Host, Service: s.Service, Metric: s.Metric}
}
