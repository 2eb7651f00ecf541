package series

import "fmt"

// Consolidation is the aggregation method used when downsampling raw
// samples into fixed-step bins.
type Consolidation string

const (
	Average Consolidation = "average"
	Min     Consolidation = "min"
	Max     Consolidation = "max"
)

// Valid reports whether the consolidation function is a known one.
func (c Consolidation) Valid() bool {
	switch c {
	case Average, Min, Max:
		return true
	}
	return false
}

// Apply reduces a non-empty bin of raw values to a single point.
func (c Consolidation) Apply(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("cannot consolidate empty bin")
	}

	switch c {
	case Average:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	case Min:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min, nil
	case Max:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	default:
		return 0, fmt.Errorf("unknown consolidation function %q", c)
	}
}
