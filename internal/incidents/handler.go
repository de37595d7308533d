package incidents

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/pkg/httputil"
)

// Pagination constants.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Get("/{id}", h.GetIncident)
		r.Post("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/actions", h.ExecuteAction)
		r.Post("/{id}/assign", h.AssignLead)
		r.Post("/{id}/team", h.AddTeamMember)
		r.Post("/{id}/links", h.LinkIncident)
		r.Post("/{id}/indicators", h.AddIndicator)
		r.Post("/{id}/notes", h.AddNote)
	})
}

var incidentErrorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidTransition, Status: http.StatusConflict},
	{Error: ErrInvalidType, Status: http.StatusBadRequest},
	{Error: ErrInvalidSeverity, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrUnknownAction, Status: http.StatusBadRequest},
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title             string            `json:"title" validate:"required,min=1,max=255"`
	Description       string            `json:"description"`
	Type              string            `json:"type" validate:"required"`
	Severity          string            `json:"severity" validate:"required,oneof=critical high medium low"`
	Source            string            `json:"source"`
	AffectedUsers     []string          `json:"affected_users"`
	AffectedResources []string          `json:"affected_resources"`
	Indicators        []string          `json:"indicators"`
	Metadata          map[string]string `json:"metadata"`
}

// ToInput converts the request to a service input.
func (r *CreateIncidentRequest) ToInput(reportedBy string) CreateIncidentInput {
	source := domain.IncidentSource(r.Source)
	if source == "" {
		source = domain.SourceManual
	}
	return CreateIncidentInput{
		Title:             r.Title,
		Description:       r.Description,
		Type:              domain.IncidentType(r.Type),
		Severity:          domain.Severity(r.Severity),
		Source:            source,
		ReportedBy:        reportedBy,
		AffectedUsers:     r.AffectedUsers,
		AffectedResources: r.AffectedResources,
		Indicators:        r.Indicators,
		Metadata:          r.Metadata,
	}
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// ExecuteActionRequest represents the request body for a response action.
type ExecuteActionRequest struct {
	Action     string         `json:"action" validate:"required"`
	Target     string         `json:"target" validate:"required"`
	Type       string         `json:"type" validate:"omitempty,oneof=automatic manual"`
	Parameters map[string]any `json:"parameters"`
}

// AssignLeadRequest represents the request body for lead assignment.
type AssignLeadRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// AddTeamMemberRequest represents the request body for adding a responder.
type AddTeamMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,min=1,max=64"`
}

// LinkIncidentRequest represents the request body for linking incidents.
type LinkIncidentRequest struct {
	RelatedID string `json:"related_id" validate:"required"`
}

// AddIndicatorRequest represents the request body for adding an indicator.
type AddIndicatorRequest struct {
	Indicator string `json:"indicator" validate:"required,min=1,max=1024"`
}

// AddNoteRequest represents the request body for a timeline note.
type AddNoteRequest struct {
	Note string `json:"note" validate:"required,min=1"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), req.ToInput(httputil.Actor(r)))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	incidents, err := h.service.List(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

// UpdateStatus handles POST /incidents/{id}/status request.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"),
		domain.IncidentStatus(req.Status), httputil.Actor(r), req.Notes)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ExecuteAction handles POST /incidents/{id}/actions request.
func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	var req ExecuteActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	actionType := domain.ActionType(req.Type)
	if actionType == "" {
		actionType = domain.ActionManual
	}

	action, err := h.service.ExecuteResponseAction(r.Context(), chi.URLParam(r, "id"), ActionRequest{
		Type:       actionType,
		Action:     req.Action,
		Target:     req.Target,
		Parameters: req.Parameters,
	}, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, action)
}

// AssignLead handles POST /incidents/{id}/assign request.
func (h *Handler) AssignLead(w http.ResponseWriter, r *http.Request) {
	var req AssignLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AssignLead(r.Context(), chi.URLParam(r, "id"), req.UserID, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// AddTeamMember handles POST /incidents/{id}/team request.
func (h *Handler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req AddTeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AddTeamMember(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Role, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// LinkIncident handles POST /incidents/{id}/links request.
func (h *Handler) LinkIncident(w http.ResponseWriter, r *http.Request) {
	var req LinkIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.LinkIncident(r.Context(), chi.URLParam(r, "id"), req.RelatedID, httputil.Actor(r)); err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusNoContent, nil)
}

// AddIndicator handles POST /incidents/{id}/indicators request.
func (h *Handler) AddIndicator(w http.ResponseWriter, r *http.Request) {
	var req AddIndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AddIndicator(r.Context(), chi.URLParam(r, "id"), req.Indicator, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// AddNote handles POST /incidents/{id}/notes request.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AddNote(r.Context(), chi.URLParam(r, "id"), req.Note, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	filters := Filters{Limit: DefaultListLimit}

	if v := q.Get("type"); v != "" {
		t := domain.IncidentType(v)
		if !t.IsValid() {
			return Filters{}, ErrInvalidType
		}
		filters.Type = &t
	}
	if v := q.Get("severity"); v != "" {
		s := domain.Severity(v)
		if !s.IsValid() {
			return Filters{}, ErrInvalidSeverity
		}
		filters.Severity = &s
	}
	if v := q.Get("status"); v != "" {
		st := domain.IncidentStatus(v)
		if !st.IsValid() {
			return Filters{}, ErrInvalidStatus
		}
		filters.Status = &st
	}
	if q.Get("open") == "true" {
		filters.OpenOnly = true
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			limit = DefaultListLimit
		}
		if limit > MaxListLimit {
			limit = MaxListLimit
		}
		filters.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err == nil && offset > 0 {
			filters.Offset = offset
		}
	}

	return filters, nil
}
