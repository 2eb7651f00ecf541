package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nicktill/tinypredict/pkg/httpx"
	"github.com/nicktill/tinypredict/pkg/server/monitor"
)

var startTime = time.Now()

// HandleHealth returns service health status.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  time.Since(startTime).String(),
	})
}

// HandleCacheUsage returns prediction cache disk usage.
func HandleCacheUsage(cacheMonitor *monitor.CacheMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usage, err := cacheMonitor.GetUsage()
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to calculate cache usage: %w", err))
			return
		}
		httpx.RespondJSON(w, http.StatusOK, usage)
	}
}
