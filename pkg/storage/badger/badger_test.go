package badger

import (
	"context"
	"testing"
	"time"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/storage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to create badger storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStorage_WriteAndQuery(t *testing.T) {
	store := newTestStorage(t)

	ctx := context.Background()
	now := time.Now()

	samples := []metrics.Sample{
		{Host: "web01", Service: "CPU load", Metric: "load15", Value: 1.5, Timestamp: now},
		{Host: "web01", Service: "CPU load", Metric: "load15", Value: 1.7, Timestamp: now.Add(time.Minute)},
		{Host: "web02", Service: "CPU load", Metric: "load15", Value: 0.4, Timestamp: now},
	}
	if err := store.Write(ctx, samples); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	results, err := store.Query(ctx, storage.QueryRequest{
		Start:   now.Add(-time.Hour),
		End:     now.Add(time.Hour),
		Host:    "web01",
		Service: "CPU load",
		Metric:  "load15",
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 samples for web01, got %d", len(results))
	}
}

func TestBadgerStorage_FullScanWithoutIdentity(t *testing.T) {
	store := newTestStorage(t)

	ctx := context.Background()
	now := time.Now()

	samples := []metrics.Sample{
		{Host: "web01", Service: "CPU load", Metric: "load15", Value: 1, Timestamp: now},
		{Host: "web02", Service: "Memory", Metric: "mem_used", Value: 2, Timestamp: now},
	}
	if err := store.Write(ctx, samples); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// No identity filter: every sample in the window comes back.
	results, err := store.Query(ctx, storage.QueryRequest{
		Start: now.Add(-time.Hour),
		End:   now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 samples from a full scan, got %d", len(results))
	}
}

func TestBadgerStorage_Delete(t *testing.T) {
	store := newTestStorage(t)

	ctx := context.Background()
	base := time.Unix(1_000_000, 0)

	samples := []metrics.Sample{
		{Host: "h", Service: "s", Metric: "m", Value: 1, Timestamp: base},
		{Host: "h", Service: "s", Metric: "m", Value: 2, Timestamp: base.Add(time.Hour)},
	}
	if err := store.Write(ctx, samples); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := store.Delete(ctx, base.Add(time.Minute)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	results, err := store.Query(ctx, storage.QueryRequest{
		Start: base.Add(-time.Hour),
		End:   base.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].Value != 2 {
		t.Errorf("expected only the newer sample to survive, got %v", results)
	}
}

func TestBadgerStorage_Stats(t *testing.T) {
	store := newTestStorage(t)

	ctx := context.Background()
	now := time.Now()

	samples := []metrics.Sample{
		{Host: "web01", Service: "CPU load", Metric: "load15", Value: 1, Timestamp: now},
		{Host: "web01", Service: "CPU load", Metric: "load15", Value: 2, Timestamp: now.Add(time.Second)},
		{Host: "web02", Service: "CPU load", Metric: "load15", Value: 3, Timestamp: now},
	}
	if err := store.Write(ctx, samples); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalSamples != 3 {
		t.Errorf("TotalSamples = %d, want 3", stats.TotalSamples)
	}
	if stats.TotalMetrics != 2 {
		t.Errorf("TotalMetrics = %d, want 2", stats.TotalMetrics)
	}
}

func TestBadgerStorage_CancelledContext(t *testing.T) {
	store := newTestStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Write(ctx, []metrics.Sample{
		{Host: "h", Service: "s", Metric: "m", Value: 1, Timestamp: time.Now()},
	}); err == nil {
		t.Error("Write with cancelled context should fail")
	}

	if _, err := store.Query(ctx, storage.QueryRequest{
		Start: time.Now().Add(-time.Hour),
		End:   time.Now(),
	}); err == nil {
		t.Error("Query with cancelled context should fail")
	}
}

func TestKeyEncoding(t *testing.T) {
	id := metrics.MetricID{Host: "web01", Service: "CPU load", Metric: "load15"}
	ts := time.Unix(1_700_000_000, 123)

	key := makeKey(id, ts)
	if len(key) != 16 {
		t.Fatalf("key length = %d, want 16", len(key))
	}
	if !keyTimestamp(key).Equal(ts) {
		t.Errorf("round-tripped timestamp = %v, want %v", keyTimestamp(key), ts)
	}

	other := makeKey(metrics.MetricID{Host: "web02", Service: "CPU load", Metric: "load15"}, ts)
	if keyHash(key) == keyHash(other) {
		t.Error("different identities should hash differently")
	}
}
