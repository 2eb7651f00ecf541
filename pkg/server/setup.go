package server

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nicktill/tinypredict/pkg/config"
	"github.com/nicktill/tinypredict/pkg/ingest"
	"github.com/nicktill/tinypredict/pkg/prediction"
	"github.com/nicktill/tinypredict/pkg/retention"
	"github.com/nicktill/tinypredict/pkg/series"
	"github.com/nicktill/tinypredict/pkg/server/monitor"
	"github.com/nicktill/tinypredict/pkg/storage"
	"github.com/nicktill/tinypredict/pkg/storage/badger"
)

// Config holds server configuration.
type Config struct {
	MaxMemoryMB int64
	DataDir     string
	CacheDir    string
	Port        string
	Timezone    *time.Location
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() Config {
	maxMemoryMB := getEnvInt64("TINYPREDICT_MAX_MEMORY_MB", config.DefaultMaxMemoryMB)
	port := getPort()

	dataDir := getEnvString("TINYPREDICT_DATA_DIR", "./data/tinypredict")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	cacheDir := filepath.Join(dataDir, "predictions")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		log.Fatalf("Failed to create prediction cache directory: %v", err)
	}

	// Timegroups follow the local calendar of the monitored site.
	loc := time.Local
	if tz := os.Getenv("TINYPREDICT_TZ"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("Invalid TINYPREDICT_TZ %q: %v", tz, err)
		}
		loc = parsed
	}

	return Config{
		MaxMemoryMB: maxMemoryMB,
		DataDir:     filepath.Join(dataDir, "samples"),
		CacheDir:    cacheDir,
		Port:        port,
		Timezone:    loc,
	}
}

// InitializeStorage initializes BadgerDB storage with the given configuration.
func InitializeStorage(cfg Config) (storage.Storage, error) {
	log.Println("Initializing BadgerDB sample storage...")
	store, err := badger.New(badger.Config{
		Path:        cfg.DataDir,
		MaxMemoryMB: cfg.MaxMemoryMB,
	})
	if err != nil {
		return nil, err
	}
	log.Println("BadgerDB sample storage initialized successfully")
	return store, nil
}

// InitializePredictor wires the prediction engine onto the sample store.
func InitializePredictor(store storage.Storage, cfg Config) (*prediction.Predictor, *prediction.Cache) {
	source := series.NewStoreSource(store, int64(config.PredictionBaseStep.Seconds()))
	cache := prediction.NewCache(cfg.CacheDir)
	predictor := prediction.New(source, cache, cfg.Timezone)
	log.Printf("Prediction engine ready (base step %v, cache at %s)", config.PredictionBaseStep, cfg.CacheDir)
	return predictor, cache
}

// InitializeHandlers creates and configures all request handlers.
func InitializeHandlers(
	store storage.Storage,
	predictor *prediction.Predictor,
) (
	*ingest.Handler,
	*prediction.Handler,
	*ingest.Hub,
) {
	hub := ingest.NewHub()
	log.Println("WebSocket hub created for live sample and level streaming")

	ingestHandler := ingest.NewHandler(store)
	ingestHandler.SetHub(hub)
	log.Println("Ingest handler created")

	levelsHandler := prediction.NewHandler(predictor)
	levelsHandler.SetBroadcaster(hub)
	log.Println("Predictive levels handler created")

	return ingestHandler, levelsHandler, hub
}

// InitializePruner creates the retention pruner with a cache-usage monitor.
func InitializePruner(store storage.Storage, cfg Config) (*retention.Pruner, *monitor.CacheMonitor) {
	pruner := retention.New(store, config.RetentionMaxAge)
	cacheMonitor := monitor.NewCacheMonitor(cfg.CacheDir)
	log.Printf("Retention pruner ready (keeps %v of raw samples, runs every %v)",
		config.RetentionMaxAge, config.RetentionInterval)
	return pruner, cacheMonitor
}

// getEnvInt64 gets an int64 from environment variable or returns default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}

// getEnvString gets a string from environment variable or returns default.
func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getPort gets the server port from PORT environment variable or returns default.
func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return config.DefaultPort
}
