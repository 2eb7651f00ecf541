package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nicktill/tinypredict/pkg/config"
	"github.com/nicktill/tinypredict/pkg/httpx"
	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/storage"
)

// Handler handles sample ingestion
type Handler struct {
	storage storage.Storage
	hub     *Hub
}

// NewHandler creates a new ingest handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// SetHub attaches the live-streaming hub; ingested samples are forwarded
// to connected clients when set.
func (h *Handler) SetHub(hub *Hub) {
	h.hub = hub
}

// IngestRequest represents the request payload
type IngestRequest struct {
	Samples []metrics.Sample `json:"samples"`
}

// IngestResponse represents the response payload
type IngestResponse struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// HandleIngest handles the /v1/ingest endpoint
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.RespondErrorString(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if len(req.Samples) == 0 {
		httpx.RespondErrorString(w, http.StatusBadRequest, "no samples in request")
		return
	}
	if len(req.Samples) > config.IngestMaxBatch {
		httpx.RespondErrorString(w, http.StatusBadRequest,
			fmt.Sprintf("batch too large: %d samples (max %d)", len(req.Samples), config.IngestMaxBatch))
		return
	}

	// Fill in missing timestamps and reject incomplete identities
	now := time.Now()
	for i := range req.Samples {
		s := &req.Samples[i]
		if s.Host == "" || s.Service == "" || s.Metric == "" {
			httpx.RespondErrorString(w, http.StatusBadRequest,
				fmt.Sprintf("sample %d: host, service and metric are required", i))
			return
		}
		if s.Timestamp.IsZero() {
			s.Timestamp = now
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.IngestTimeout)
	defer cancel()

	if err := h.storage.Write(ctx, req.Samples); err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to store samples: %w", err))
		return
	}

	// Forward to live clients, best effort
	if h.hub != nil && h.hub.HasClients() {
		h.hub.Broadcast(map[string]interface{}{
			"type":      "samples",
			"timestamp": now.Unix(),
			"samples":   req.Samples,
			"count":     len(req.Samples),
		})
	}

	httpx.RespondJSON(w, http.StatusOK, IngestResponse{
		Status: "success",
		Count:  len(req.Samples),
	})
}

// HandleStats handles the /v1/stats endpoint
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.StatsTimeout)
	defer cancel()

	stats, err := h.storage.Stats(ctx)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to read stats: %w", err))
		return
	}

	httpx.RespondJSON(w, http.StatusOK, stats)
}
