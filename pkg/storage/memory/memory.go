package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/storage"
)

// Storage stores samples in memory. Data is lost on restart.
// Useful for testing and development.
type Storage struct {
	samples []metrics.Sample
	mu      sync.RWMutex
}

// New creates an in-memory storage backend
func New() *Storage {
	return &Storage{
		samples: make([]metrics.Sample, 0, 10000),
	}
}

// Write stores samples in memory
func (s *Storage) Write(ctx context.Context, samples []metrics.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, samples...)
	return nil
}

// Query retrieves samples matching the request
func (s *Storage) Query(ctx context.Context, req storage.QueryRequest) ([]metrics.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []metrics.Sample

	for _, sample := range s.samples {
		if !req.Matches(sample) {
			continue
		}

		results = append(results, sample)

		// Limit check
		if req.Limit > 0 && len(results) >= req.Limit {
			break
		}
	}

	return results, nil
}

// Delete removes samples older than the given time
func (s *Storage) Delete(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]metrics.Sample, 0, len(s.samples))
	for _, sample := range s.samples {
		if !sample.Timestamp.Before(before) {
			filtered = append(filtered, sample)
		}
	}

	s.samples = filtered
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		TotalSamples: uint64(len(s.samples)),
	}

	if len(s.samples) == 0 {
		return stats, nil
	}

	// Count unique metrics and find min/max timestamps in a single pass
	idSet := make(map[metrics.MetricID]bool)
	oldest := s.samples[0].Timestamp
	newest := s.samples[0].Timestamp

	for _, sample := range s.samples {
		idSet[sample.ID()] = true

		if sample.Timestamp.Before(oldest) {
			oldest = sample.Timestamp
		}
		if sample.Timestamp.After(newest) {
			newest = sample.Timestamp
		}
	}

	stats.TotalMetrics = uint64(len(idSet))
	stats.OldestSample = oldest
	stats.NewestSample = newest

	// Rough size estimate (each sample ~100 bytes)
	stats.SizeBytes = uint64(len(s.samples)) * 100

	return stats, nil
}
