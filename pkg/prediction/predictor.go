package prediction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/series"
)

// Predictor computes adaptive alerting thresholds for a metric by
// comparing its current time offset against a statistically derived
// baseline built from the metric's own history.
//
// Each computation is a sequential pipeline: resolve the timegroup, check
// the cache, on a miss collect the historical slices, resample them onto a
// common resolution, summarize, persist, and finally estimate the levels
// for the current offset.
type Predictor struct {
	source series.Source
	cache  *Cache
	loc    *time.Location

	// Per-(metric, timegroup) locks serialize regeneration so concurrent
	// misses for the same key do not race on the persisted pair.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a predictor. loc determines the local calendar used for
// timegroup resolution; nil means the system's local timezone.
func New(source series.Source, cache *Cache, loc *time.Location) *Predictor {
	if loc == nil {
		loc = time.Local
	}
	return &Predictor{
		source: source,
		cache:  cache,
		loc:    loc,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Location returns the local calendar the predictor resolves timegroups in.
func (p *Predictor) Location() *time.Location {
	return p.loc
}

// Levels computes the predictive alerting bounds for the metric at the
// explicit reference time now (epoch seconds). It returns the reference
// average of the baseline at the current offset and the estimated bounds.
//
// levelsFactor multiplies all absolute level values, e.g. to scale
// per-core CPU load thresholds by the core count.
func (p *Predictor) Levels(
	ctx context.Context,
	id metrics.MetricID,
	params Params,
	cf series.Consolidation,
	levelsFactor float64,
	now int64,
) (*float64, *EstimatedLevels, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	if !cf.Valid() {
		return nil, nil, &ConfigurationError{Reason: fmt.Sprintf("unknown consolidation function %q", cf)}
	}

	period, err := PeriodFor(params.Period)
	if err != nil {
		return nil, nil, err
	}

	timegroup, _, _, relTime := ResolveTimegroup(now, period, p.loc)

	unlock := p.lock(id, timegroup)
	defer unlock()

	p.cache.Clean(id, timegroup, false)

	var data *PredictionData
	if p.cache.IsFresh(id, timegroup, params, now) {
		data = p.cache.Load(id, timegroup)
	}

	if data != nil {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()

		data, err = p.regenerate(ctx, id, params, cf, period, timegroup, now)
		if err != nil {
			return nil, nil, err
		}
	}

	reference, err := referenceAt(data, relTime)
	if err != nil {
		return nil, nil, err
	}

	levels, err := EstimateLevels(reference.Average, reference.Stdev,
		params.LevelsUpper, params.LevelsLower, params.LevelsUpperMin, levelsFactor)
	if err != nil {
		return nil, nil, err
	}

	return reference.Average, levels, nil
}

// regenerate rebuilds and persists the baseline for the timegroup.
func (p *Predictor) regenerate(
	ctx context.Context,
	id metrics.MetricID,
	params Params,
	cf series.Consolidation,
	period PeriodInfo,
	timegroup Timegroup,
	now int64,
) (*PredictionData, error) {
	start := time.Now()
	defer func() {
		regenDuration.Observe(time.Since(start).Seconds())
	}()

	p.cache.Clean(id, timegroup, true)

	horizon := int64(params.Horizon) * 86400
	windows := TimeSlices(now, horizon, period, timegroup, p.loc)

	twindow, slices, err := retrieveGroupedSeries(ctx, p.source, id, cf, windows)
	if err != nil {
		return nil, err
	}

	descriptors := DataStats(slices)

	data := &PredictionData{
		Columns:     Columns,
		Points:      descriptors,
		NumPoints:   len(descriptors),
		DataTwindow: [2]int64{twindow.Start, twindow.End},
		Step:        twindow.Step,
	}

	info := PredictionInfo{
		ComputedAt: now,
		Range:      [2]int64{windows[0].Start, windows[0].End},
		CF:         string(cf),
		MetricName: id.Metric,
		Slice:      period.Slice,
		Params:     params,
	}

	// Write failures propagate: the caller decides whether serving stale
	// data is acceptable.
	if err := p.cache.Store(id, timegroup, info, data); err != nil {
		return nil, err
	}

	return data, nil
}

// referenceAt finds the baseline statistics covering the given offset
// within the slice.
func referenceAt(data *PredictionData, relTime int64) (PointStat, error) {
	if data.Step <= 0 || len(data.Points) == 0 {
		return PointStat{}, ErrNoHistoricData
	}

	index := int(relTime / data.Step)
	if index < 0 || index >= len(data.Points) {
		return PointStat{}, fmt.Errorf("no baseline point for offset %ds (have %d points at step %ds)",
			relTime, len(data.Points), data.Step)
	}
	return data.Points[index], nil
}

// lock acquires the regeneration lock for one (metric, timegroup) pair.
func (p *Predictor) lock(id metrics.MetricID, tg Timegroup) func() {
	key := id.String() + "|" + string(tg)

	p.mu.Lock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
