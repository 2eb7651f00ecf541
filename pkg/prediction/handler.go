package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nicktill/tinypredict/pkg/config"
	"github.com/nicktill/tinypredict/pkg/httpx"
	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/series"
)

// Broadcaster pushes freshly computed levels to live stream clients.
// Satisfied by the ingest hub.
type Broadcaster interface {
	Broadcast(data interface{}) error
	HasClients() bool
}

// Handler serves predictive level requests
type Handler struct {
	predictor   *Predictor
	broadcaster Broadcaster
}

// NewHandler creates a new levels handler
func NewHandler(p *Predictor) *Handler {
	return &Handler{predictor: p}
}

// SetBroadcaster attaches a live-streaming sink; computed levels are
// forwarded to connected clients when set.
func (h *Handler) SetBroadcaster(b Broadcaster) {
	h.broadcaster = b
}

// LevelsRequest represents the request payload for /v1/levels
type LevelsRequest struct {
	Host    string `json:"host"`
	Service string `json:"service"`
	Metric  string `json:"metric"`

	Params Params `json:"params"`

	// CF is the consolidation function for downsampling (default: average)
	CF series.Consolidation `json:"cf,omitempty"`

	// LevelsFactor multiplies absolute levels (default: 1.0)
	LevelsFactor float64 `json:"levels_factor,omitempty"`

	// Time is the reference timestamp in epoch seconds (default: now).
	// Pinning it makes responses reproducible.
	Time int64 `json:"time,omitempty"`
}

// LevelsResponse represents the response payload
type LevelsResponse struct {
	Status    string           `json:"status"`
	Host      string           `json:"host"`
	Service   string           `json:"service"`
	Metric    string           `json:"metric"`
	Timegroup Timegroup        `json:"timegroup"`
	Reference *float64         `json:"reference"`
	Levels    *EstimatedLevels `json:"levels"`
}

// HandleLevels handles the /v1/levels endpoint. Any unresolved error means
// "no predictive levels available" for this cycle; the monitoring loop
// keeps running either way.
func (h *Handler) HandleLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.RespondErrorString(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LevelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		levelsRequests.WithLabelValues("bad_request").Inc()
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if req.Host == "" || req.Service == "" || req.Metric == "" {
		levelsRequests.WithLabelValues("bad_request").Inc()
		httpx.RespondErrorString(w, http.StatusBadRequest, "host, service and metric are required")
		return
	}

	// Defaults
	if req.CF == "" {
		req.CF = series.Average
	}
	if req.LevelsFactor == 0 {
		req.LevelsFactor = config.DefaultLevelsFactor
	}
	if req.Params.Horizon == 0 {
		req.Params.Horizon = config.DefaultHorizonDays
	}
	if req.Params.Horizon > config.MaxHorizonDays {
		levelsRequests.WithLabelValues("bad_request").Inc()
		httpx.RespondErrorString(w, http.StatusBadRequest,
			fmt.Sprintf("horizon %d days exceeds the maximum of %d", req.Params.Horizon, config.MaxHorizonDays))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.LevelsTimeout)
	defer cancel()

	id := metrics.MetricID{Host: req.Host, Service: req.Service, Metric: req.Metric}
	now := req.Time
	if now == 0 {
		now = time.Now().Unix()
	}

	reference, levels, err := h.predictor.Levels(ctx, id, req.Params, req.CF, req.LevelsFactor, now)
	if err != nil {
		var confErr *ConfigurationError
		switch {
		case errors.As(err, &confErr):
			levelsRequests.WithLabelValues("bad_request").Inc()
			httpx.RespondError(w, http.StatusBadRequest, err)
		case errors.Is(err, ErrNoHistoricData):
			levelsRequests.WithLabelValues("no_data").Inc()
			httpx.RespondErrorString(w, http.StatusNotFound, "no predictive levels available: "+err.Error())
		default:
			levelsRequests.WithLabelValues("error").Inc()
			httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("no predictive levels available: %w", err))
		}
		return
	}

	// Resolution already succeeded inside the predictor, so this cannot
	// fail; redone here only to echo the timegroup back.
	period, _ := PeriodFor(req.Params.Period)
	timegroup, _, _, _ := ResolveTimegroup(now, period, h.predictor.Location())

	resp := LevelsResponse{
		Status:    "success",
		Host:      req.Host,
		Service:   req.Service,
		Metric:    req.Metric,
		Timegroup: timegroup,
		Reference: reference,
		Levels:    levels,
	}

	// Forward to live clients, best effort
	if h.broadcaster != nil && h.broadcaster.HasClients() {
		h.broadcaster.Broadcast(map[string]interface{}{
			"type":   "levels",
			"time":   now,
			"levels": resp,
		})
	}

	levelsRequests.WithLabelValues("ok").Inc()
	httpx.RespondJSON(w, http.StatusOK, resp)
}
