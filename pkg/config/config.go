package config

import "time"

// Server defaults
const (
	DefaultPort        = "8080"
	DefaultMaxMemoryMB = 48
)

// Prediction defaults
const (
	// PredictionBaseStep is the native resolution raw samples are
	// consolidated onto before baseline computation.
	PredictionBaseStep = 5 * time.Minute

	// DefaultHorizonDays is how far back baselines look when the caller
	// does not say otherwise.
	DefaultHorizonDays = 90

	// DefaultLevelsFactor leaves absolute levels unscaled.
	DefaultLevelsFactor = 1.0
)

// Background job intervals
const (
	RetentionInterval  = 1 * time.Hour
	CacheSweepInterval = 6 * time.Hour
	BadgerGCInterval   = 10 * time.Minute
)

// Retention keeps raw samples a little past the longest horizon any
// baseline can use, so a horizon bump does not start from nothing.
const (
	MaxHorizonDays  = 100
	RetentionMaxAge = MaxHorizonDays * 24 * time.Hour
)

// Request timeouts and limits
const (
	IngestTimeout  = 5 * time.Second
	LevelsTimeout  = 30 * time.Second
	StatsTimeout   = 5 * time.Second
	IngestMaxBatch = 10000
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)
