package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicktill/tinypredict/pkg/server"
)

const (
	serverReadTimeout  = 10 * time.Second
	serverWriteTimeout = 35 * time.Second // levels computation may take a while on cold cache
	shutdownTimeout    = 30 * time.Second
)

func main() {
	log.Println("Starting TinyPredict server...")

	cfg := server.LoadConfig()
	log.Printf("Data directory: %s", cfg.DataDir)

	store, err := server.InitializeStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	predictor, cache := server.InitializePredictor(store, cfg)
	ingestHandler, levelsHandler, hub := server.InitializeHandlers(store, predictor)
	pruner, cacheMonitor := server.InitializePruner(store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	log.Println("WebSocket hub started")

	stopRetention := make(chan bool)
	wg.Add(1)
	go server.RunRetention(pruner, stopRetention, &wg)

	stopSweep := make(chan bool)
	wg.Add(1)
	go server.RunCacheSweep(cache, stopSweep, &wg)

	stopGC := make(chan bool)
	wg.Add(1)
	go server.RunBadgerGC(store, stopGC, &wg)

	// Create router
	router := mux.NewRouter()

	// CORS middleware for API access
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// API routes
	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/ingest", ingestHandler.HandleIngest).Methods("POST")
	api.HandleFunc("/levels", levelsHandler.HandleLevels).Methods("POST")
	api.HandleFunc("/stats", ingestHandler.HandleStats).Methods("GET")
	api.HandleFunc("/storage", server.HandleCacheUsage(cacheMonitor)).Methods("GET")
	api.HandleFunc("/health", server.HandleHealth).Methods("GET")
	api.HandleFunc("/ws", ingestHandler.HandleWebSocket(hub)).Methods("GET")

	// Prometheus self-instrumentation (standard /metrics path)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.Port)
		log.Println("API endpoints:")
		log.Println("   POST /v1/ingest   - Ingest samples")
		log.Println("   POST /v1/levels   - Compute predictive levels")
		log.Println("   GET  /v1/stats    - Sample store statistics")
		log.Println("   GET  /v1/storage  - Prediction cache usage")
		log.Println("   GET  /metrics     - Prometheus self-metrics")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received...")

	// Cancel the context first to stop goroutines, then close the stop
	// channels; doing this after wg.Wait() would deadlock.
	cancel()
	close(stopRetention)
	close(stopSweep)
	close(stopGC)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	log.Println("Gracefully shutting down server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown warning: %v", err)
	}

	// Wait for background goroutines with a bound to prevent hanging
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("TinyPredict server exited cleanly")
}
