package storage

import (
	"context"
	"time"

	"github.com/nicktill/tinypredict/pkg/metrics"
)

// Storage defines the interface for sample storage backends.
// Implementations: memory (testing), badger (production)
type Storage interface {
	// Write stores samples
	Write(ctx context.Context, samples []metrics.Sample) error

	// Query retrieves samples within a time range
	Query(ctx context.Context, req QueryRequest) ([]metrics.Sample, error)

	// Delete removes samples older than the given time
	Delete(ctx context.Context, before time.Time) error

	// Close cleanly shuts down the storage
	Close() error

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)
}

// QueryRequest specifies which samples to retrieve
type QueryRequest struct {
	// Time range: Start inclusive, End exclusive
	Start time.Time
	End   time.Time

	// Filter by metric identity (zero fields match everything)
	Host    string
	Service string
	Metric  string

	// Limit number of results (0 = no limit)
	Limit int
}

// Matches reports whether a sample passes the request's filters.
func (req QueryRequest) Matches(s metrics.Sample) bool {
	if s.Timestamp.Before(req.Start) || !s.Timestamp.Before(req.End) {
		return false
	}
	if req.Host != "" && s.Host != req.Host {
		return false
	}
	if req.Service != "" && s.Service != req.Service {
		return false
	}
	if req.Metric != "" && s.Metric != req.Metric {
		return false
	}
	return true
}

// Stats provides storage health and usage info
type Stats struct {
	// Total samples stored
	TotalSamples uint64

	// Unique metrics (host + service + metric combinations)
	TotalMetrics uint64

	// Storage size in bytes
	SizeBytes uint64

	// Oldest sample timestamp
	OldestSample time.Time

	// Newest sample timestamp
	NewestSample time.Time
}
