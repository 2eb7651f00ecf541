package series

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/storage/memory"
)

var testID = metrics.MetricID{Host: "web01", Service: "CPU load", Metric: "load15"}

func seedSamples(t *testing.T, store *memory.Storage, values map[int64]float64) {
	t.Helper()
	samples := make([]metrics.Sample, 0, len(values))
	for ts, v := range values {
		samples = append(samples, metrics.Sample{
			Host:      testID.Host,
			Service:   testID.Service,
			Metric:    testID.Metric,
			Value:     v,
			Timestamp: time.Unix(ts, 0),
		})
	}
	if err := store.Write(context.Background(), samples); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestConsolidationApply(t *testing.T) {
	tests := []struct {
		cf     Consolidation
		values []float64
		want   float64
	}{
		{Average, []float64{2, 4, 6}, 4},
		{Min, []float64{3, 1, 2}, 1},
		{Max, []float64{3, 1, 2}, 3},
		{Average, []float64{5}, 5},
	}

	for _, tt := range tests {
		got, err := tt.cf.Apply(tt.values)
		if err != nil {
			t.Errorf("%s.Apply(%v) failed: %v", tt.cf, tt.values, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s.Apply(%v) = %v, want %v", tt.cf, tt.values, got, tt.want)
		}
	}
}

func TestConsolidationApply_EmptyBin(t *testing.T) {
	if _, err := Average.Apply(nil); err == nil {
		t.Error("expected error for empty bin")
	}
}

func TestConsolidationValid(t *testing.T) {
	for _, cf := range []Consolidation{Average, Min, Max} {
		if !cf.Valid() {
			t.Errorf("%s should be valid", cf)
		}
	}
	if Consolidation("median").Valid() {
		t.Error("median should not be valid")
	}
}

func TestStoreSource_EmptyWindowHasNoStep(t *testing.T) {
	store := memory.New()
	defer store.Close()

	src := NewStoreSource(store, 300)
	ts, err := src.Fetch(context.Background(), testID, 0, 3600, Average)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if ts.Step != 0 {
		t.Errorf("expected Step 0 for an empty window, got %d", ts.Step)
	}
	if ts.Start != 0 || ts.End != 3600 {
		t.Errorf("empty series should keep the requested window, got [%d, %d)", ts.Start, ts.End)
	}
}

func TestStoreSource_BinsAndConsolidates(t *testing.T) {
	store := memory.New()
	defer store.Close()

	// Two samples in the first 300s bin, one in the third.
	seedSamples(t, store, map[int64]float64{
		10:  2,
		200: 4,
		650: 9,
	})

	src := NewStoreSource(store, 300)
	ts, err := src.Fetch(context.Background(), testID, 0, 900, Average)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if ts.Step != 300 {
		t.Fatalf("expected Step 300, got %d", ts.Step)
	}
	if len(ts.Values) != 3 {
		t.Fatalf("expected 3 bins, got %d", len(ts.Values))
	}

	if ts.Values[0] == nil || *ts.Values[0] != 3 {
		t.Errorf("bin 0 average = %v, want 3", ts.Values[0])
	}
	if ts.Values[1] != nil {
		t.Errorf("bin 1 should be nil (no samples), got %v", *ts.Values[1])
	}
	if ts.Values[2] == nil || *ts.Values[2] != 9 {
		t.Errorf("bin 2 = %v, want 9", ts.Values[2])
	}
}

func TestStoreSource_MinMaxConsolidation(t *testing.T) {
	store := memory.New()
	defer store.Close()

	seedSamples(t, store, map[int64]float64{
		10:  2,
		100: 8,
		200: 5,
	})

	src := NewStoreSource(store, 300)

	tsMin, err := src.Fetch(context.Background(), testID, 0, 300, Min)
	if err != nil {
		t.Fatalf("Fetch(min) failed: %v", err)
	}
	if tsMin.Values[0] == nil || *tsMin.Values[0] != 2 {
		t.Errorf("min bin = %v, want 2", tsMin.Values[0])
	}

	tsMax, err := src.Fetch(context.Background(), testID, 0, 300, Max)
	if err != nil {
		t.Fatalf("Fetch(max) failed: %v", err)
	}
	if tsMax.Values[0] == nil || *tsMax.Values[0] != 8 {
		t.Errorf("max bin = %v, want 8", tsMax.Values[0])
	}
}

func TestStoreSource_AlignsWindowOutward(t *testing.T) {
	store := memory.New()
	defer store.Close()

	seedSamples(t, store, map[int64]float64{450: 1})

	src := NewStoreSource(store, 300)
	ts, err := src.Fetch(context.Background(), testID, 450, 750, Average)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if ts.Start != 300 || ts.End != 900 {
		t.Errorf("aligned window = [%d, %d), want [300, 900)", ts.Start, ts.End)
	}
	if (ts.End-ts.Start)%ts.Step != 0 {
		t.Error("aligned window length must be a step multiple")
	}
}

func TestStoreSource_RejectsUnknownConsolidation(t *testing.T) {
	src := NewStoreSource(memory.New(), 300)
	if _, err := src.Fetch(context.Background(), testID, 0, 300, "median"); err == nil {
		t.Error("expected error for unknown consolidation function")
	}
}

func TestFloorCeilDiv(t *testing.T) {
	tests := []struct {
		a, b        int64
		floor, ceil int64
	}{
		{10, 3, 3, 4},
		{9, 3, 3, 3},
		{-10, 3, -4, -3},
		{0, 3, 0, 0},
	}

	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.floor {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.floor)
		}
		if got := ceilDiv(tt.a, tt.b); got != tt.ceil {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.ceil)
		}
	}
}

func TestStoreSource_ConsolidationIsExact(t *testing.T) {
	// Averaging must not accumulate error over a full bin of samples.
	store := memory.New()
	defer store.Close()

	values := make(map[int64]float64)
	for i := int64(0); i < 300; i += 10 {
		values[i] = 0.1
	}
	seedSamples(t, store, values)

	src := NewStoreSource(store, 300)
	ts, err := src.Fetch(context.Background(), testID, 0, 300, Average)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if ts.Values[0] == nil || math.Abs(*ts.Values[0]-0.1) > 1e-12 {
		t.Errorf("average = %v, want 0.1", ts.Values[0])
	}
}
