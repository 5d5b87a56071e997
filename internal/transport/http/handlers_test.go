package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "lickey/internal/errors"
	"lickey/internal/services"
	"lickey/internal/shared/testutil"
	"lickey/pkg/contracts/domain"
)

func TestHello(t *testing.T) {
	w := httptest.NewRecorder()
	Hello(w, httptest.NewRequest(http.MethodGet, "/hello", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "World", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestHealthHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := new(MockLicenseService)
	h := NewHealthHandler(services.NewHealthService(svc, logger), svc, apperrors.NewErrorHandler(logger, false), logger)
	r := chi.NewRouter()
	r.Mount("/api/health", h.Routes())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	assert.Equal(t, "alive", decodeBody(t, get("/api/health/live"))["status"])
	assert.Contains(t, decodeBody(t, get("/api/health/version")), "license_format")

	empty := &domain.LoaderStatus{Identities: []string{}, HardwareKeys: []string{"11-22-33-AA-BB-CC"}}
	svc.On("Status", mock.Anything).Return(empty, nil).Twice()
	w = get("/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decodeBody(t, w)["status"])

	w = get("/api/health/loader")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"11-22-33-AA-BB-CC"}, decodeBody(t, w)["hardware_keys"])

	loaded := &domain.LoaderStatus{Licenses: 1, Identities: []string{"Acme/Widget"}}
	svc.On("Status", mock.Anything).Return(loaded, nil).Once()
	w = get("/api/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decodeBody(t, w)["status"])

	svc.AssertExpectations(t)
}

func TestMetricsHandler(t *testing.T) {
	w := httptest.NewRecorder()
	NewMetricsHandler(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "METRICS_DISABLED")

	w = httptest.NewRecorder()
	NewMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP up"))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# HELP up", w.Body.String())
}
