package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "lickey/internal/errors"
	"lickey/internal/license"
	"lickey/internal/services"
	api "lickey/pkg/contracts/api/v1"
)

// LicenseHandler serves the verification API
type LicenseHandler struct {
	service  services.LicenseService
	errors   *apperrors.ErrorHandler
	validate *validator.Validate
	logger   *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, errHandler *apperrors.ErrorHandler, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:  service,
		errors:   errHandler,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints. verify is the hot path;
// verifyMiddleware (rate limiting) applies to it alone.
func (h *LicenseHandler) Routes(verifyMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.With(verifyMiddleware...).Get("/verify", h.Verify)
	r.Post("/load", h.Load)
	return r
}

// Verify handles GET /api/license/verify?vendor=&application=&feature=[&min_version=]
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := api.LicenseVerifyRequest{
		Vendor:      q.Get("vendor"),
		Application: q.Get("application"),
		Feature:     q.Get("feature"),
		MinVersion:  q.Get("min_version"),
	}
	if err := h.validate.Struct(req); err != nil {
		h.errors.HandleError(w, r, apperrors.FromValidator(err))
		return
	}
	minVersion, err := license.ParseFeatureVersion(req.MinVersion)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	result, err := h.service.Verify(r.Context(), req.Vendor, req.Application, req.Feature, minVersion)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Load handles POST /api/license/load
func (h *LicenseHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req api.LicenseLoadRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errors.HandleError(w, r, apperrors.FromValidator(err))
		return
	}

	result, err := h.service.LoadFile(r.Context(), req.Path, req.Vendor, req.Application)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "license loaded on request",
		slog.String("identity", result.Identity),
		slog.String("path", result.Source))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// List handles GET /api/license
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"licenses": h.service.List(r.Context()),
	})
}
