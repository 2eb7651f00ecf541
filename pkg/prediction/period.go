package prediction

import (
	"strconv"
	"strings"
	"time"
)

// PeriodName selects one of the supported time partition schemes.
type PeriodName string

const (
	// PeriodWday buckets by local weekday: one baseline per "monday",
	// "tuesday", ... built from day-length slices.
	PeriodWday PeriodName = "wday"

	// PeriodDay buckets by local day of month: one baseline per "1".."31".
	PeriodDay PeriodName = "day"

	// PeriodHour collapses all days into a single "everyday" bucket,
	// still sliced by the day.
	PeriodHour PeriodName = "hour"

	// PeriodMinute collapses all hours into a single "everyhour" bucket,
	// sliced by the hour.
	PeriodMinute PeriodName = "minute"
)

// Timegroup names the recurring bucket a timestamp falls into under a
// period scheme, e.g. "tuesday", "17", "everyday".
type Timegroup string

// GroupByFunc maps a timestamp to its timegroup and the offset in seconds
// from the start of the current slice.
type GroupByFunc func(t int64, loc *time.Location) (Timegroup, int64)

// PeriodInfo describes one partition scheme.
type PeriodInfo struct {
	// Slice is the size of one partition unit in seconds (day or hour).
	Slice int64

	// GroupBy resolves a timestamp to (timegroup, offset within slice).
	GroupBy GroupByFunc

	// Valid bounds how many slice-lengths a cached prediction stays fresh.
	Valid int64
}

var periods = map[PeriodName]PeriodInfo{
	PeriodWday:   {Slice: 86400, GroupBy: groupByWday, Valid: 7},      // 7 buckets
	PeriodDay:    {Slice: 86400, GroupBy: groupByDayOfMonth, Valid: 28}, // 31 buckets
	PeriodHour:   {Slice: 86400, GroupBy: groupByEveryday, Valid: 1},  // 1 bucket
	PeriodMinute: {Slice: 3600, GroupBy: groupByEveryhour, Valid: 24}, // 1 bucket
}

// PeriodFor looks up the descriptor for a period name.
func PeriodFor(name PeriodName) (PeriodInfo, error) {
	info, ok := periods[name]
	if !ok {
		return PeriodInfo{}, &ConfigurationError{Reason: "unknown period " + strconv.Quote(string(name))}
	}
	return info, nil
}

func groupByWday(t int64, loc *time.Location) (Timegroup, int64) {
	wday := time.Unix(t, 0).In(loc).Weekday()
	return Timegroup(strings.ToLower(wday.String())), windowStart(t, 86400, loc)
}

func groupByDayOfMonth(t int64, loc *time.Location) (Timegroup, int64) {
	mday := time.Unix(t, 0).In(loc).Day()
	return Timegroup(strconv.Itoa(mday)), windowStart(t, 86400, loc)
}

func groupByEveryday(t int64, loc *time.Location) (Timegroup, int64) {
	return "everyday", windowStart(t, 86400, loc)
}

func groupByEveryhour(t int64, loc *time.Location) (Timegroup, int64) {
	return "everyhour", windowStart(t, 3600, loc)
}

// windowStart returns how many seconds t lies past the start of its
// span-sized partition, in local wall-clock terms.
//
// The UTC offset is evaluated at t itself, never per historical slice.
// That keeps the computation deterministic but is deliberately unfair on
// days shortened or stretched by a DST switch: all days count as 24h and
// swaps within a slice are ignored.
func windowStart(t, span int64, loc *time.Location) int64 {
	offset := utcOffsetAt(t, loc)
	rel := (t + offset) % span
	if rel < 0 {
		rel += span
	}
	return rel
}

// utcOffsetAt returns the local UTC offset in seconds at the given time.
func utcOffsetAt(t int64, loc *time.Location) int64 {
	_, offset := time.Unix(t, 0).In(loc).Zone()
	return int64(offset)
}

// ResolveTimegroup maps an absolute timestamp to its bucket under the
// given period. It returns the timegroup name, the first second of the
// current slice, the first second *not* in the slice, and the offset of t
// within the slice. Resolution is deterministic: the same timestamp always
// yields the same result.
func ResolveTimegroup(t int64, info PeriodInfo, loc *time.Location) (Timegroup, int64, int64, int64) {
	timegroup, relTime := info.GroupBy(t, loc)
	fromTime := t - relTime
	untilTime := fromTime + info.Slice
	return timegroup, fromTime, untilTime, relTime
}

// TimeWindow is one historical slice: Start inclusive, End exclusive,
// epoch seconds.
type TimeWindow struct {
	Start int64
	End   int64
}

// TimeSlices collects all past slices belonging to the given timegroup,
// stepping backward from timestamp in slice-length increments until the
// horizon is passed. The result is ordered most recent first. A horizon
// shorter than one period cycle simply yields a short or empty result.
func TimeSlices(timestamp, horizon int64, info PeriodInfo, timegroup Timegroup, loc *time.Location) []TimeWindow {
	absBegin := timestamp - horizon

	var slices []TimeWindow
	for begin := timestamp; begin > absBegin; begin -= info.Slice {
		tg, start, end, _ := ResolveTimegroup(begin, info, loc)
		if tg == timegroup {
			slices = append(slices, TimeWindow{Start: start, End: end})
		}
	}
	return slices
}
