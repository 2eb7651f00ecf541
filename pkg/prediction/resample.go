package prediction

import (
	"context"
	"fmt"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/series"
)

// retrieveGroupedSeries fetches the raw series for every collected time
// window and up-samples them onto a single common resolution.
//
// The common resolution is the youngest window's native twindow: the
// youngest slice is assumed to carry the finest resolution, so everything
// older is shifted onto its start and back-filled to its step. A youngest
// window without any native data means there is nothing to predict from.
func retrieveGroupedSeries(
	ctx context.Context,
	src series.Source,
	id metrics.MetricID,
	cf series.Consolidation,
	windows []TimeWindow,
) (series.Twindow, [][]*float64, error) {
	if len(windows) == 0 {
		return series.Twindow{}, nil, ErrNoHistoricData
	}

	fromTime := windows[0].Start

	type shifted struct {
		ts    *series.TimeSeries
		shift int64
	}

	fetched := make([]shifted, 0, len(windows))
	for _, w := range windows {
		ts, err := src.Fetch(ctx, id, w.Start, w.End, cf)
		if err != nil {
			return series.Twindow{}, nil, fmt.Errorf("failed to fetch series for %s: %w", id, err)
		}
		fetched = append(fetched, shifted{ts: ts, shift: fromTime - w.Start})
	}

	twindow := fetched[0].ts.Twindow()
	if twindow.Step == 0 {
		return series.Twindow{}, nil, ErrNoHistoricData
	}

	slices := make([][]*float64, 0, len(fetched))
	for _, f := range fetched {
		slices = append(slices, f.ts.BfillUpsample(twindow, f.shift))
	}

	return twindow, slices, nil
}
