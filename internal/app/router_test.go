package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ricemill-erp/ricemill-erp/internal/observability"
	"github.com/ricemill-erp/ricemill-erp/internal/store"
	"github.com/ricemill-erp/ricemill-erp/jobs"
)

func newTestRouter(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{StoreDriver: store.DriverMemory, DepletionMode: "retain", RateLimit: 1000}
	metrics := observability.NewMetrics()
	svcs := NewServices(store.NewMemoryStore(), cfg, logger, metrics)

	jobsConfig, err := JobsConfig(cfg, svcs, logger, metrics)
	require.NoError(t, err)
	jobsConfig.Cron = nil
	scheduler, err := jobs.NewLocalScheduler(jobsConfig)
	require.NoError(t, err)

	params := svcs.Handlers(logger)
	params.Logger = logger
	params.Config = cfg
	params.Metrics = metrics
	params.JobHandler = jobs.NewHandler(nil, scheduler, logger)
	return NewRouter(params), metrics
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader).WithContext(context.Background())
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestConsignmentFlowThroughRouter(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/inventory/gunny/batches", `{"quantity":600,"dateReceived":"2024-01-05"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = do(t, router, http.MethodPost, "/api/inventory/rexin-sticker/batches", `{"quantity":580,"dateReceived":"2024-01-05"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPost, "/api/fci/consignments", `{"ackNumber":"ACK-1","consignmentDate":"2024-01-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/api/inventory/gunny/available", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"available":"20"`)

	rr = do(t, router, http.MethodPost, "/api/fci/consignments", `{"ackNumber":"ACK-2","consignmentDate":"2024-01-11"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "ricemill_consignments_issued_total 1")
	require.Contains(t, rr.Body.String(), `ricemill_stock_shortfalls_total{material="gunny"} 1`)
}

func TestJobRoutesMounted(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := do(t, router, http.MethodGet, "/api/jobs/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/jobs/overdue-scan?asOf=2024-03-31", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
}
