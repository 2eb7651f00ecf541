package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nicktill/tinypredict/pkg/config"
	"github.com/nicktill/tinypredict/pkg/prediction"
	"github.com/nicktill/tinypredict/pkg/retention"
	"github.com/nicktill/tinypredict/pkg/storage"
	"github.com/nicktill/tinypredict/pkg/storage/badger"
)

// RunRetention runs the sample retention job periodically.
func RunRetention(pruner *retention.Pruner, stop chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.RetentionInterval)
	defer ticker.Stop()

	// Helper to run the pruner with retry and exponential backoff
	runWithRetry := func(ctx context.Context) {
		maxRetries := 3
		baseDelay := 30 * time.Second

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				delay := baseDelay * time.Duration(1<<(attempt-1)) // 30s, 60s, 120s
				log.Printf("Retrying retention in %v (attempt %d/%d)...", delay, attempt+1, maxRetries+1)
				select {
				case <-time.After(delay):
				case <-stop:
					return
				}
			}

			start := time.Now()
			if err := pruner.Prune(ctx, time.Now()); err != nil {
				log.Printf("Retention failed (attempt %d/%d): %v", attempt+1, maxRetries+1, err)
				continue
			}

			log.Printf("Retention completed in %v", time.Since(start).Round(time.Millisecond))
			return
		}

		log.Printf("Retention failed after %d attempts, will retry on next schedule", maxRetries+1)
	}

	for {
		select {
		case <-ticker.C:
			log.Println("Scheduled retention started...")
			runWithRetry(context.Background())
		case <-stop:
			log.Println("Stopping retention scheduler")
			return
		}
	}
}

// RunCacheSweep periodically removes expired prediction cache entries.
func RunCacheSweep(cache *prediction.Cache, stop chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.CacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := cache.Sweep(time.Now().Unix()); err != nil {
				log.Printf("Prediction cache sweep failed: %v", err)
				continue
			}
			log.Printf("Prediction cache sweep completed in %v", time.Since(start).Round(time.Millisecond))
		case <-stop:
			log.Println("Stopping prediction cache sweeper")
			return
		}
	}
}

// RunBadgerGC runs BadgerDB garbage collection periodically to reclaim
// disk space. BadgerDB's LSM tree accumulates deleted data in its value
// log; GC is essential to prevent unbounded disk growth.
func RunBadgerGC(store storage.Storage, stop chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.BadgerGCInterval)
	defer ticker.Stop()

	// Type assert to get the underlying BadgerDB
	badgerStore, ok := store.(*badger.Storage)
	if !ok {
		log.Println("Storage is not BadgerDB, skipping GC")
		return
	}

	log.Printf("BadgerDB GC scheduler started (runs every %v)", config.BadgerGCInterval)

	for {
		select {
		case <-ticker.C:
			start := time.Now()

			// Run GC with 0.5 discard ratio (reclaim space if 50% of a
			// file is garbage); one iteration per tick to avoid blocking.
			if err := badgerStore.RunGC(0.5); err != nil {
				// Not an error if no GC was needed
				log.Printf("GC completed in %v (no rewrite needed)", time.Since(start).Round(time.Millisecond))
			} else {
				log.Printf("GC completed in %v (disk space reclaimed)", time.Since(start).Round(time.Millisecond))
			}
		case <-stop:
			log.Println("Stopping BadgerDB GC scheduler")
			return
		}
	}
}
