package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/storage"
)

// Storage implements storage.Storage using BadgerDB (LSM tree)
type Storage struct {
	db *badger.DB
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = defaults).
	// Recommended: 64-128 MB for local dev, 256-512 MB for production
	MaxMemoryMB int64
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// BadgerDB defaults: 64 MB memtable, 5 x 64 MB = 320 MB total.
	// A predictive-levels store holds raw samples for at most a few horizons,
	// so we run with a much smaller footprint.
	var memTableSize, valueLogMaxEntries int64
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3 // ~33% for memtable
		valueLogMaxEntries = 5000
	} else {
		// 16 MB memtable is the minimum for decent performance.
		// Below 16 MB causes excessive disk flushes.
		memTableSize = 16 * 1024 * 1024
		valueLogMaxEntries = 5000
	}

	// BadgerDB has multiple unbounded memory consumers; without these limits
	// it can consume 1-2 GB even with a small memtable.
	blockCacheSize := memTableSize / 2 // Block cache: 50% of memtable
	indexCacheSize := memTableSize / 4 // Index cache: 25% of memtable

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3). // active + 2 flushing
		WithBlockCacheSize(blockCacheSize).
		WithIndexCacheSize(indexCacheSize).
		WithMaxLevels(4).               // reduce LSM depth (default 7) for small datasets
		WithNumLevelZeroTables(2).      // trigger compaction earlier (default 5)
		WithNumLevelZeroTablesStall(4). // hard limit before stalling writes (default 10)
		WithValueThreshold(1024).       // keep small values in LSM, large in vlog
		WithNumCompactors(1).
		WithValueLogMaxEntries(uint32(valueLogMaxEntries)).
		WithValueLogFileSize(64 << 20) // 64 MB value log files instead of default 2GB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Storage{db: db}, nil
}

// Write stores samples in BadgerDB.
// Enforces context timeout/cancellation to prevent indefinite blocking.
func (s *Storage) Write(ctx context.Context, samples []metrics.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			for i, sample := range samples {
				// Check context periodically (every 100 samples)
				if i%100 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				key := makeKey(sample.ID(), sample.Timestamp)
				value, err := json.Marshal(sample)
				if err != nil {
					return fmt.Errorf("failed to encode sample: %w", err)
				}

				if err := txn.Set(key, value); err != nil {
					return fmt.Errorf("failed to write sample: %w", err)
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("write operation cancelled: %w", ctx.Err())
	}
}

// Query retrieves samples matching the request.
// Enforces context timeout/cancellation to prevent indefinite blocking.
func (s *Storage) Query(ctx context.Context, req storage.QueryRequest) ([]metrics.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type queryResult struct {
		results []metrics.Sample
		err     error
	}
	done := make(chan queryResult, 1)

	go func() {
		var res queryResult
		res.err = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchSize = 100

			it := txn.NewIterator(opts)
			defer it.Close()

			// When the request names a full metric identity we can seek
			// straight to its key range; otherwise scan everything.
			prefix := keyPrefix(req)
			var iterCount int

			for seek(it, prefix); it.ValidForPrefix(prefix); it.Next() {
				iterCount++

				// Check for cancellation every 1000 iterations so long scans
				// cannot block shutdown or exceed caller timeouts.
				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				item := it.Item()
				err := item.Value(func(val []byte) error {
					var sample metrics.Sample
					if err := json.Unmarshal(val, &sample); err != nil {
						return fmt.Errorf("failed to decode sample: %w", err)
					}

					if !req.Matches(sample) {
						return nil
					}

					res.results = append(res.results, sample)
					return nil
				})
				if err != nil {
					return err
				}

				// Early exit if limit reached
				if req.Limit > 0 && len(res.results) >= req.Limit {
					break
				}
			}

			return nil
		})
		done <- res
	}()

	select {
	case res := <-done:
		return res.results, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("query operation cancelled: %w", ctx.Err())
	}
}

// Delete removes samples older than the given time.
// Enforces context timeout/cancellation to prevent indefinite blocking.
func (s *Storage) Delete(ctx context.Context, before time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.PrefetchValues = false

			it := txn.NewIterator(iterOpts)
			defer it.Close()

			var keysToDelete [][]byte
			var iterCount int

			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++

				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				item := it.Item()

				// Timestamp is encoded in the key, no value read needed
				ts := keyTimestamp(item.Key())
				if !ts.Before(before) {
					continue
				}

				keysToDelete = append(keysToDelete, item.KeyCopy(nil))
			}

			for _, key := range keysToDelete {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}

			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("delete operation cancelled: %w", ctx.Err())
	}
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection.
// This reclaims disk space from deleted/updated values.
// discardRatio: run GC if this fraction of a file can be discarded (0.5 = 50%).
// Returns an error only if GC failed, nil if GC was not needed or succeeded.
func (s *Storage) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// Stats returns storage statistics.
// Enforces context timeout/cancellation to prevent indefinite blocking.
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type statsResult struct {
		stats *storage.Stats
		err   error
	}
	done := make(chan statsResult, 1)

	go func() {
		var res statsResult
		stats := &storage.Stats{}

		res.err = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false

			it := txn.NewIterator(opts)
			defer it.Close()

			metricSet := make(map[uint64]bool)
			var oldestTS, newestTS time.Time
			var iterCount int

			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++

				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				item := it.Item()
				stats.TotalSamples++

				metricSet[keyHash(item.Key())] = true

				ts := keyTimestamp(item.Key())
				if oldestTS.IsZero() || ts.Before(oldestTS) {
					oldestTS = ts
				}
				if newestTS.IsZero() || ts.After(newestTS) {
					newestTS = ts
				}
			}

			stats.TotalMetrics = uint64(len(metricSet))
			stats.OldestSample = oldestTS
			stats.NewestSample = newestTS

			return nil
		})

		if res.err == nil {
			lsmSize, vlogSize := s.db.Size()
			stats.SizeBytes = uint64(lsmSize + vlogSize)
		}

		res.stats = stats
		done <- res
	}()

	select {
	case res := <-done:
		return res.stats, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("stats operation cancelled: %w", ctx.Err())
	}
}

// makeKey creates a sortable key: metric_hash + timestamp
// Format: [metric_hash (8 bytes)][timestamp (8 bytes)]
func makeKey(id metrics.MetricID, ts time.Time) []byte {
	hash := xxhash.Sum64String(id.String())

	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], hash)
	binary.BigEndian.PutUint64(key[8:16], uint64(ts.UnixNano()))

	return key
}

// keyPrefix returns the 8-byte metric-hash prefix for a fully qualified
// metric identity, or nil when the request needs a full scan.
func keyPrefix(req storage.QueryRequest) []byte {
	if req.Host == "" || req.Service == "" || req.Metric == "" {
		return nil
	}

	id := metrics.MetricID{Host: req.Host, Service: req.Service, Metric: req.Metric}
	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, xxhash.Sum64String(id.String()))
	return prefix
}

// seek positions the iterator at the start of the prefix range,
// or at the beginning for a full scan.
func seek(it *badger.Iterator, prefix []byte) {
	if prefix == nil {
		it.Rewind()
		return
	}
	it.Seek(prefix)
}

// keyHash extracts the metric hash from a storage key
func keyHash(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[0:8])
}

// keyTimestamp extracts the sample timestamp from a storage key
func keyTimestamp(key []byte) time.Time {
	tsNano := binary.BigEndian.Uint64(key[8:16])
	return time.Unix(0, int64(tsNano))
}
