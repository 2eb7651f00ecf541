package series

import (
	"context"
	"fmt"
	"time"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/storage"
)

// Source fetches the historic series of one metric for an absolute time
// window. It is the single data-access seam of the prediction engine.
type Source interface {
	// Fetch returns the series for [start, end) at the source's native
	// resolution, consolidated with cf. A series with Step 0 means the
	// source holds no data for the window.
	Fetch(ctx context.Context, id metrics.MetricID, start, end int64, cf Consolidation) (*TimeSeries, error)
}

// StoreSource is a Source backed by the sample store. Raw samples are
// binned onto a fixed base step and consolidated per bin.
type StoreSource struct {
	store storage.Storage
	step  int64
}

// NewStoreSource creates a store-backed series source with the given base
// step in seconds.
func NewStoreSource(store storage.Storage, step int64) *StoreSource {
	return &StoreSource{store: store, step: step}
}

// Fetch queries raw samples for the window and consolidates them into
// fixed-step bins. Bins without samples are nil. A window without any
// samples yields a Step 0 series.
func (s *StoreSource) Fetch(ctx context.Context, id metrics.MetricID, start, end int64, cf Consolidation) (*TimeSeries, error) {
	if !cf.Valid() {
		return nil, fmt.Errorf("unknown consolidation function %q", cf)
	}

	samples, err := s.store.Query(ctx, storage.QueryRequest{
		Start:   time.Unix(start, 0),
		End:     time.Unix(end, 0),
		Host:    id.Host,
		Service: id.Service,
		Metric:  id.Metric,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query samples for %s: %w", id, err)
	}

	if len(samples) == 0 {
		// No native resolution without data. Callers treat Step 0 as
		// "no historic data".
		return &TimeSeries{Start: start, End: end, Step: 0}, nil
	}

	// Align the window outward onto step boundaries so the twindow length
	// is always a step multiple.
	alignedStart := floorDiv(start, s.step) * s.step
	alignedEnd := ceilDiv(end, s.step) * s.step
	numBins := (alignedEnd - alignedStart) / s.step

	bins := make([][]float64, numBins)
	for _, sample := range samples {
		t := sample.Timestamp.Unix()
		if t < alignedStart || t >= alignedEnd {
			continue
		}
		idx := (t - alignedStart) / s.step
		bins[idx] = append(bins[idx], sample.Value)
	}

	values := make([]*float64, numBins)
	for i, bin := range bins {
		if len(bin) == 0 {
			continue
		}
		v, err := cf.Apply(bin)
		if err != nil {
			return nil, err
		}
		values[i] = &v
	}

	return &TimeSeries{
		Start:  alignedStart,
		End:    alignedEnd,
		Step:   s.step,
		Values: values,
	}, nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ceilDiv divides rounding toward positive infinity.
func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
