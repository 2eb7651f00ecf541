package monitor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheMonitor_GetUsage(t *testing.T) {
	dir := t.TempDir()

	entry := filepath.Join(dir, "web01", "CPU%20load", "load15")
	if err := os.MkdirAll(filepath.Dir(entry), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(entry, []byte(`{"points":[]}`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(entry+".info", []byte(`{"computed_at":0}`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cm := NewCacheMonitor(dir)
	usage, err := cm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage failed: %v", err)
	}

	if usage.Entries != 1 {
		t.Errorf("Entries = %d, want 1 (one info sidecar)", usage.Entries)
	}
	wantBytes := int64(len(`{"points":[]}`) + len(`{"computed_at":0}`))
	if usage.UsedBytes != wantBytes {
		t.Errorf("UsedBytes = %d, want %d", usage.UsedBytes, wantBytes)
	}
}

func TestCacheMonitor_MissingDirectory(t *testing.T) {
	cm := NewCacheMonitor(filepath.Join(t.TempDir(), "does-not-exist"))

	usage, err := cm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage on a missing directory failed: %v", err)
	}
	if usage.UsedBytes != 0 || usage.Entries != 0 {
		t.Errorf("missing directory should report zero usage, got %+v", usage)
	}
}

func TestCacheMonitor_CachesResult(t *testing.T) {
	dir := t.TempDir()
	cm := NewCacheMonitor(dir)

	if _, err := cm.GetUsage(); err != nil {
		t.Fatalf("GetUsage failed: %v", err)
	}

	// New files within the caching window are not picked up yet.
	if err := os.WriteFile(filepath.Join(dir, "everyday.info"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	usage, err := cm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage failed: %v", err)
	}
	if usage.Entries != 0 {
		t.Errorf("cached usage should not see new files yet, got %d entries", usage.Entries)
	}
}
