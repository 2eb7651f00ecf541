/*
Package prediction computes adaptive alerting thresholds ("predictive
levels") for a metric from the metric's own history.

# Why Predictive Levels?

Static thresholds fit metrics with static behavior. Most production
metrics are not static: CPU load follows the business day, request rates
follow the week, batch jobs load the system every night. A fixed
"warn at 80%" either fires every evening or misses a quiet-hour anomaly.

Predictive levels replace the fixed threshold with a baseline learned
from history: "this metric, on a Tuesday at 14:30, is usually around X".
Alerting bounds are then derived relative to that baseline.

# How a Prediction is Built

For one metric and one point in time the pipeline is:

 1. Resolve the timegroup: the recurring bucket the timestamp falls
    into under the configured period ("tuesday", "17", "everyday",
    "everyhour").
 2. Collect historical slices: step backwards day by day (or hour by
    hour) over the configured horizon, keeping the slices that belong
    to the same timegroup.
 3. Resample: fetch each slice from the sample store and back-fill it
    onto the youngest slice's resolution so all slices line up
    point-for-point.
 4. Summarize: for every time offset, reduce the column of values
    across slices to (average, min, max, stdev).
 5. Persist: write the summary and its metadata to the prediction
    cache. Summaries stay valid for a period-dependent window and are
    recomputed when parameters change.
 6. Estimate levels: look up the baseline point covering the current
    offset and apply the configured levels method (absolute, relative
    or stdev) to produce warn/crit bounds.

Steps 1-2 are pure time arithmetic, steps 3-4 pure data transforms;
only steps 3 and 5 touch I/O. Same inputs always produce the same
prediction.

# Periods and Timegroups

Four partition schemes are supported:

	wday    one baseline per weekday, day-length slices (7 buckets)
	day     one baseline per day of month (up to 31 buckets)
	hour    one baseline for all days ("everyday", 1 bucket)
	minute  one baseline for all hours ("everyhour", 1 bucket)

Timegroups follow the local wall clock of the configured timezone. The
UTC offset is evaluated at the reference time only, so predictions stay
deterministic across DST switches at the cost of treating every day as
exactly 24 hours.

# Error Handling

Two error classes leave the package:

  - ConfigurationError: the request itself is invalid (unknown period,
    non-positive horizon, unknown levels method). Returned before any
    I/O.
  - ErrNoHistoricData: the store holds nothing usable for the metric.
    The monitoring loop treats this as "no levels this cycle", not as
    a failure.

Anything else is an infrastructure error (store query failed, cache
write failed) and is wrapped with context.

# See Also

  - pkg/series for the sample-store-backed series source
  - pkg/storage for the underlying sample store
  - cmd/server for the HTTP surface wiring
*/
package prediction
