package reporting

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
	"github.com/sentineldesk/responder/internal/pkg/httputil"
)

// Handler handles HTTP requests for the reporting module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new reporting handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the reporting module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents/{id}/reports", func(r chi.Router) {
		r.Get("/", h.ListReports)
		r.Post("/", h.GenerateReport)
	})
	r.Get("/reports/{reportID}", h.GetReport)
}

var reportErrorMappings = []httputil.ErrorMapping{
	{Error: incidents.ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrReportNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidReportType, Status: http.StatusBadRequest},
}

// GenerateReportRequest represents the request body for report generation.
type GenerateReportRequest struct {
	Type string `json:"type" validate:"required,oneof=executive technical regulatory customer postmortem"`
}

// GenerateReport handles POST /incidents/{id}/reports request.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	report, err := h.service.Generate(r.Context(), chi.URLParam(r, "id"),
		domain.ReportType(req.Type), httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, reportErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, report)
}

// ListReports handles GET /incidents/{id}/reports request.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.service.List(chi.URLParam(r, "id")))
}

// GetReport handles GET /reports/{reportID} request.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetReport(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, reportErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, report)
}
