package prediction

import "strconv"

// EstimatedLevels holds the alerting bounds derived from the reference
// statistics. A nil bound means "no level configured or derivable".
type EstimatedLevels struct {
	UpperWarn *float64 `json:"upper_warn,omitempty"`
	UpperCrit *float64 `json:"upper_crit,omitempty"`
	LowerWarn *float64 `json:"lower_warn,omitempty"`
	LowerCrit *float64 `json:"lower_crit,omitempty"`
}

// Upper returns the effective upper bound (the warn threshold), or nil.
func (e *EstimatedLevels) Upper() *float64 {
	if e == nil {
		return nil
	}
	return e.UpperWarn
}

// Lower returns the effective lower bound (the warn threshold), or nil.
func (e *EstimatedLevels) Lower() *float64 {
	if e == nil {
		return nil
	}
	return e.LowerWarn
}

// EstimateLevels combines the reference statistics of the current time
// offset with the configured levels specs. It is pure: same inputs, same
// bounds.
//
// levelsFactor scales absolute level values only, e.g. to multiply
// per-core CPU load thresholds by the core count. Without a reference
// value no levels can be derived at all; without a reference stdev the
// "stdev" method yields no bounds for its side.
func EstimateLevels(
	reference *float64,
	stdev *float64,
	upper *LevelsSpec,
	lower *LevelsSpec,
	upperMin *MinBound,
	levelsFactor float64,
) (*EstimatedLevels, error) {
	levels := &EstimatedLevels{}
	if reference == nil {
		return levels, nil
	}

	if upper != nil {
		warn, err := estimateBound(*reference, stdev, *upper, levelsFactor, upper.Warn, +1)
		if err != nil {
			return nil, err
		}
		crit, err := estimateBound(*reference, stdev, *upper, levelsFactor, upper.Crit, +1)
		if err != nil {
			return nil, err
		}

		if upperMin != nil {
			warn = floorAt(warn, upperMin[0])
			crit = floorAt(crit, upperMin[1])
		}
		levels.UpperWarn, levels.UpperCrit = warn, crit
	}

	if lower != nil {
		warn, err := estimateBound(*reference, stdev, *lower, levelsFactor, lower.Warn, -1)
		if err != nil {
			return nil, err
		}
		crit, err := estimateBound(*reference, stdev, *lower, levelsFactor, lower.Crit, -1)
		if err != nil {
			return nil, err
		}
		levels.LowerWarn, levels.LowerCrit = warn, crit
	}

	return levels, nil
}

// estimateBound derives a single bound. direction is +1 for upper bounds
// and -1 for lower bounds.
func estimateBound(reference float64, stdev *float64, spec LevelsSpec, levelsFactor, value float64, direction float64) (*float64, error) {
	switch spec.Method {
	case LevelsAbsolute:
		// An absolute threshold value, independent of the reference.
		bound := value * levelsFactor
		return &bound, nil
	case LevelsRelative:
		// Percentage deviation from the reference.
		bound := reference + direction*reference*value/100
		return &bound, nil
	case LevelsStdev:
		// Multiples of the reference standard deviation.
		if stdev == nil {
			return nil, nil
		}
		bound := reference + direction*(*stdev)*value
		return &bound, nil
	default:
		return nil, &ConfigurationError{Reason: "unknown levels method " + strconv.Quote(spec.Method)}
	}
}

// floorAt lifts a bound up to the given minimum.
func floorAt(bound *float64, min float64) *float64 {
	if bound == nil || *bound >= min {
		return bound
	}
	return &min
}
