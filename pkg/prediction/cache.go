package prediction

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/nicktill/tinypredict/pkg/metrics"
)

// PredictionData is the persisted baseline summary for one timegroup.
type PredictionData struct {
	Columns     []string    `json:"columns"`
	Points      []PointStat `json:"points"`
	NumPoints   int         `json:"num_points"`
	DataTwindow [2]int64    `json:"data_twindow"`
	Step        int64       `json:"step"`
}

// PredictionInfo is the persisted metadata sidecar of a PredictionData.
// Both files are always written together; the info file is written last so
// a reader that finds valid metadata also finds the matching summary.
type PredictionInfo struct {
	ComputedAt int64    `json:"computed_at"`
	Range      [2]int64 `json:"range"`
	CF         string   `json:"consolidation_function"`
	MetricName string   `json:"metric_name"`
	Slice      int64    `json:"slice_length"`
	Params     Params   `json:"params"`
}

// Cache persists prediction summaries on disk, two JSON files per
// (host, service, metric, timegroup): "<timegroup>" holds the summary and
// "<timegroup>.info" the metadata.
//
// Unreadable or truncated entries count as cache misses so a bad entry
// heals itself on the next computation. Write failures are returned to the
// caller.
type Cache struct {
	dir string
}

// NewCache creates a prediction cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache's root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// entryDir maps a metric identity to its storage location.
func (c *Cache) entryDir(id metrics.MetricID) string {
	return filepath.Join(c.dir,
		url.PathEscape(id.Host),
		url.PathEscape(id.Service),
		url.PathEscape(id.Metric))
}

func (c *Cache) dataPath(id metrics.MetricID, tg Timegroup) string {
	return filepath.Join(c.entryDir(id), url.PathEscape(string(tg)))
}

func (c *Cache) infoPath(id metrics.MetricID, tg Timegroup) string {
	return c.dataPath(id, tg) + ".info"
}

// IsFresh reports whether the cached prediction for the timegroup may be
// reused: metadata must exist, must not be past its validity window, and
// must have been computed with the same parameters.
func (c *Cache) IsFresh(id metrics.MetricID, tg Timegroup, params Params, now int64) bool {
	info := c.loadInfo(id, tg)
	if info == nil {
		return false
	}

	period, err := PeriodFor(params.Period)
	if err != nil {
		return false
	}

	if info.ComputedAt+period.Valid*period.Slice < now {
		return false
	}

	return equalAfterRoundTrip(info.Params, params)
}

// Load returns the cached summary for the timegroup, or nil on a miss.
// Corrupt entries are a miss, never an error.
func (c *Cache) Load(id metrics.MetricID, tg Timegroup) *PredictionData {
	raw, err := os.ReadFile(c.dataPath(id, tg))
	if err != nil {
		return nil
	}

	var data PredictionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	if data.NumPoints != len(data.Points) {
		return nil
	}
	return &data
}

// loadInfo returns the cached metadata for the timegroup, or nil on a miss.
func (c *Cache) loadInfo(id metrics.MetricID, tg Timegroup) *PredictionInfo {
	raw, err := os.ReadFile(c.infoPath(id, tg))
	if err != nil {
		return nil
	}

	var info PredictionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil
	}
	return &info
}

// Store persists summary and metadata for the timegroup. Each file is
// written atomically (temp file + rename); the data file goes first so
// readers checking the info sidecar never see metadata without its
// summary.
func (c *Cache) Store(id metrics.MetricID, tg Timegroup, info PredictionInfo, data *PredictionData) error {
	if err := os.MkdirAll(c.entryDir(id), 0o755); err != nil {
		return fmt.Errorf("failed to create prediction dir: %w", err)
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode prediction data: %w", err)
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode prediction info: %w", err)
	}

	if err := atomicWrite(c.dataPath(id, tg), dataJSON); err != nil {
		return fmt.Errorf("failed to write prediction data: %w", err)
	}
	if err := atomicWrite(c.infoPath(id, tg), infoJSON); err != nil {
		return fmt.Errorf("failed to write prediction info: %w", err)
	}
	return nil
}

// Clean removes the cached pair for the timegroup. Without force only
// vestiges of interrupted writes (zero-size files) are removed.
func (c *Cache) Clean(id metrics.MetricID, tg Timegroup, force bool) {
	for _, path := range []string{c.dataPath(id, tg), c.infoPath(id, tg)} {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		if force || st.Size() == 0 {
			os.Remove(path)
		}
	}
}

// Sweep walks the cache and removes entries whose metadata shows them
// expired beyond their validity window, together with orphaned data files.
// Used by the background sweeper.
func (c *Cache) Sweep(now int64) error {
	return filepath.Walk(c.dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if fi.IsDir() || filepath.Ext(path) != ".info" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		var info PredictionInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			// Unreadable metadata: drop the pair, it will regenerate.
			os.Remove(path)
			os.Remove(path[:len(path)-len(".info")])
			return nil
		}

		period, perr := PeriodFor(info.Params.Period)
		if perr != nil || info.ComputedAt+period.Valid*period.Slice < now {
			os.Remove(path)
			os.Remove(path[:len(path)-len(".info")])
		}
		return nil
	})
}

// atomicWrite writes data to path via a temp file in the same directory
// and a rename, so readers never observe a torn file.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
