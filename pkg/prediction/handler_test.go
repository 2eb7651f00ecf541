package prediction

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinypredict/pkg/metrics"
	"github.com/nicktill/tinypredict/pkg/series"
	"github.com/nicktill/tinypredict/pkg/storage/memory"
)

func newTestHandler(t *testing.T, store *memory.Storage) *Handler {
	t.Helper()
	source := series.NewStoreSource(store, 3600)
	cache := NewCache(t.TempDir())
	return NewHandler(New(source, cache, time.UTC))
}

func postLevels(t *testing.T, handler *Handler, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/levels", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleLevels(rr, req)
	return rr
}

func TestHandleLevels_Success(t *testing.T) {
	store := memory.New()
	defer store.Close()

	id := metrics.MetricID{Host: "web01", Service: "CPU load", Metric: "load15"}
	seedConstantHistory(t, store, id, time.Now().Unix(), 9, 100)

	handler := newTestHandler(t, store)
	rr := postLevels(t, handler, LevelsRequest{
		Host:    id.Host,
		Service: id.Service,
		Metric:  id.Metric,
		Params: Params{
			Period:      PeriodHour,
			Horizon:     8,
			LevelsUpper: &LevelsSpec{Method: LevelsAbsolute, Warn: 110, Crit: 120},
		},
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp LevelsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	require.NotNil(t, resp.Reference)
	require.Equal(t, 100.0, *resp.Reference)
	require.NotNil(t, resp.Levels)
	require.NotNil(t, resp.Levels.UpperWarn)
	require.Equal(t, 110.0, *resp.Levels.UpperWarn)
}

func TestHandleLevels_PinnedReferenceTime(t *testing.T) {
	store := memory.New()
	defer store.Close()

	id := metrics.MetricID{Host: "web01", Service: "CPU load", Metric: "load15"}
	asOf := time.Date(2026, 1, 10, 12, 30, 0, 0, time.UTC).Unix()
	seedConstantHistory(t, store, id, asOf, 9, 100)

	handler := newTestHandler(t, store)
	rr := postLevels(t, handler, LevelsRequest{
		Host:    id.Host,
		Service: id.Service,
		Metric:  id.Metric,
		Time:    asOf,
		Params: Params{
			Period:      PeriodHour,
			Horizon:     8,
			LevelsUpper: &LevelsSpec{Method: LevelsRelative, Warn: 10, Crit: 20},
		},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp LevelsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 100.0, *resp.Reference)
	require.Equal(t, 110.0, *resp.Levels.UpperWarn)
	require.Equal(t, 120.0, *resp.Levels.UpperCrit)
	require.Equal(t, Timegroup("everyday"), resp.Timegroup)
}

func TestHandleLevels_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, memory.New())

	req := httptest.NewRequest(http.MethodGet, "/v1/levels", nil)
	rr := httptest.NewRecorder()
	handler.HandleLevels(rr, req)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleLevels_InvalidJSON(t *testing.T) {
	handler := newTestHandler(t, memory.New())

	req := httptest.NewRequest(http.MethodPost, "/v1/levels", bytes.NewReader([]byte("{broken")))
	rr := httptest.NewRecorder()
	handler.HandleLevels(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleLevels_MissingIdentity(t *testing.T) {
	handler := newTestHandler(t, memory.New())

	rr := postLevels(t, handler, LevelsRequest{
		Host:   "web01",
		Params: Params{Period: PeriodHour, Horizon: 8},
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "required")
}

func TestHandleLevels_HorizonTooLarge(t *testing.T) {
	handler := newTestHandler(t, memory.New())

	rr := postLevels(t, handler, LevelsRequest{
		Host:    "web01",
		Service: "CPU load",
		Metric:  "load15",
		Params:  Params{Period: PeriodHour, Horizon: 365},
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "horizon")
}

func TestHandleLevels_UnknownPeriod(t *testing.T) {
	handler := newTestHandler(t, memory.New())

	rr := postLevels(t, handler, LevelsRequest{
		Host:    "web01",
		Service: "CPU load",
		Metric:  "load15",
		Params:  Params{Period: "fortnight", Horizon: 8},
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleLevels_NoData(t *testing.T) {
	handler := newTestHandler(t, memory.New())

	rr := postLevels(t, handler, LevelsRequest{
		Host:    "web01",
		Service: "CPU load",
		Metric:  "load15",
		Params:  Params{Period: PeriodHour, Horizon: 8},
	})

	require.Equal(t, http.StatusNotFound, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "no predictive levels available")
}

func TestHandleLevels_AppliesDefaults(t *testing.T) {
	store := memory.New()
	defer store.Close()

	id := metrics.MetricID{Host: "web01", Service: "CPU load", Metric: "load15"}
	seedConstantHistory(t, store, id, time.Now().Unix(), 9, 100)

	handler := newTestHandler(t, store)

	// No cf, no levels factor, no horizon: the handler fills in average,
	// 1.0 and the default horizon.
	rr := postLevels(t, handler, LevelsRequest{
		Host:    id.Host,
		Service: id.Service,
		Metric:  id.Metric,
		Params:  Params{Period: PeriodHour},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp LevelsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reference)
	require.Equal(t, 100.0, *resp.Reference)
}
