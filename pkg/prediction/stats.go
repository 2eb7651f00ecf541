package prediction

import (
	"encoding/json"
	"fmt"
	"math"
)

// PointStat holds the aggregate statistics for one time offset of a
// timegroup's baseline. All fields are nil when no slice had a defined
// value at that offset.
type PointStat struct {
	Average *float64
	Min     *float64
	Max     *float64
	Stdev   *float64
}

// Columns lists the statistic names in persisted point order.
var Columns = []string{"average", "min", "max", "stdev"}

// MarshalJSON encodes the point as a 4-element array matching the
// persisted column order, with null for undefined statistics.
func (p PointStat) MarshalJSON() ([]byte, error) {
	return json.Marshal([]*float64{p.Average, p.Min, p.Max, p.Stdev})
}

// UnmarshalJSON decodes the persisted 4-element array form.
func (p *PointStat) UnmarshalJSON(data []byte) error {
	var values []*float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) != len(Columns) {
		return fmt.Errorf("expected %d statistics per point, got %d", len(Columns), len(values))
	}
	p.Average, p.Min, p.Max, p.Stdev = values[0], values[1], values[2], values[3]
	return nil
}

// DataStats statistically summarizes the resampled slices. For each time
// offset it reduces the column of defined values across all slices to
// (average, min, max, stdev). Slices must share length and step.
func DataStats(slices [][]*float64) []PointStat {
	if len(slices) == 0 {
		return nil
	}

	numPoints := len(slices[0])
	descriptors := make([]PointStat, 0, numPoints)

	for i := 0; i < numPoints; i++ {
		var column []float64
		for _, slice := range slices {
			if i < len(slice) && slice[i] != nil {
				column = append(column, *slice[i])
			}
		}

		if len(column) == 0 {
			descriptors = append(descriptors, PointStat{})
			continue
		}

		sum := 0.0
		min := column[0]
		max := column[0]
		for _, v := range column {
			sum += v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		average := sum / float64(len(column))
		stdev := stdDev(column, average)

		descriptors = append(descriptors, PointStat{
			Average: &average,
			Min:     &min,
			Max:     &max,
			Stdev:   &stdev,
		})
	}

	return descriptors
}

// stdDev computes the biased-sample standard deviation via the
// sum-of-squares shortcut. With a single data point an unbiased standard
// deviation is undefined; the magnitude of the measured value itself is
// used as the measure of dispersion instead.
//
// The shortcut form is kept as-is for compatibility with previously
// persisted predictions, even though it cancels badly for large means
// with small variances.
func stdDev(points []float64, average float64) float64 {
	samples := len(points)
	if samples == 1 {
		return math.Abs(average)
	}

	sumSquares := 0.0
	for _, p := range points {
		sumSquares += p * p
	}
	return math.Sqrt(math.Abs(sumSquares-average*average*float64(samples)) / float64(samples-1))
}
