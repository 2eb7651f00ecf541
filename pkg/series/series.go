package series

// Twindow describes a fixed-resolution time interval:
// Start inclusive, End exclusive, Step seconds per point.
type Twindow struct {
	Start int64
	End   int64
	Step  int64
}

// NumPoints returns the number of points the window holds.
func (tw Twindow) NumPoints() int {
	if tw.Step <= 0 {
		return 0
	}
	return int((tw.End - tw.Start) / tw.Step)
}

// TimeSeries is a fixed-step sequence of optional samples. Values[i] covers
// the interval [Start+i*Step, Start+(i+1)*Step); nil marks a missing point.
// Step 0 means the backing store had no data at all for the window.
type TimeSeries struct {
	Start  int64
	End    int64
	Step   int64
	Values []*float64
}

// Twindow returns the series' native resolution window.
func (ts *TimeSeries) Twindow() Twindow {
	return Twindow{Start: ts.Start, End: ts.End, Step: ts.Step}
}

// BfillUpsample re-aligns the series onto the target window, shifting its
// start by shift seconds. Each target point takes the value of the native
// interval containing it; target points outside the shifted native range
// are filled with nil. The native step is assumed to be no finer than the
// target step.
func (ts *TimeSeries) BfillUpsample(tw Twindow, shift int64) []*float64 {
	out := make([]*float64, 0, tw.NumPoints())
	shiftedStart := ts.Start + shift

	for t := tw.Start; t < tw.End; t += tw.Step {
		if ts.Step <= 0 || t < shiftedStart {
			out = append(out, nil)
			continue
		}
		idx := (t - shiftedStart) / ts.Step
		if idx >= int64(len(ts.Values)) {
			out = append(out, nil)
			continue
		}
		out = append(out, ts.Values[idx])
	}

	return out
}
