package http

import (
	"net/http"

	apperrors "lickey/internal/errors"
)

// MetricsHandler serves the Prometheus registry
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler wraps the exporter handler, which is nil when metrics
// are disabled.
func NewMetricsHandler(handler http.Handler) *MetricsHandler {
	return &MetricsHandler{handler: handler}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.handler == nil {
		apperrors.WriteError(w, apperrors.New(http.StatusServiceUnavailable, "METRICS_DISABLED", "Metrics are disabled"))
		return
	}
	h.handler.ServeHTTP(w, r)
}
