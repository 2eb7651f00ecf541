package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CacheMonitor tracks prediction-cache disk usage with short-lived
// caching to avoid walking the directory on every request.
type CacheMonitor struct {
	cacheDir      string
	cachedUsage   int64
	cachedEntries int
	lastCheck     time.Time
	cacheDuration time.Duration
	mu            sync.Mutex
}

// Usage describes the cache directory's current footprint.
type Usage struct {
	UsedBytes int64 `json:"used_bytes"`
	Entries   int   `json:"entries"`
}

// NewCacheMonitor creates a monitor for the given cache directory.
func NewCacheMonitor(cacheDir string) *CacheMonitor {
	return &CacheMonitor{
		cacheDir:      cacheDir,
		cacheDuration: 10 * time.Second, // avoid expensive disk scans per request
	}
}

// GetUsage returns the cache directory's size and entry count (cached).
func (cm *CacheMonitor) GetUsage() (Usage, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if time.Since(cm.lastCheck) < cm.cacheDuration {
		return Usage{UsedBytes: cm.cachedUsage, Entries: cm.cachedEntries}, nil
	}

	var size int64
	var entries int
	err := filepath.Walk(cm.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		size += info.Size()
		// Each prediction entry is a data file plus its .info sidecar;
		// count the sidecars so entries means baselines, not files.
		if filepath.Ext(path) == ".info" {
			entries++
		}
		return nil
	})
	if err != nil {
		return Usage{}, err
	}

	cm.cachedUsage = size
	cm.cachedEntries = entries
	cm.lastCheck = time.Now()
	return Usage{UsedBytes: size, Entries: entries}, nil
}
