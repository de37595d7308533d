package investigation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
	"github.com/sentineldesk/responder/internal/pkg/httputil"
)

// Handler handles HTTP requests for the investigation module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new investigation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the investigation module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents/{id}/investigation", func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/", h.Get)
		r.Post("/findings", h.AddFinding)
		r.Post("/hypotheses", h.AddHypothesis)
		r.Post("/forensic-events", h.AddForensicEvent)
		r.Post("/recommendations", h.AddRecommendation)
	})
	r.Route("/incidents/{id}/evidence", func(r chi.Router) {
		r.Get("/", h.ListEvidence)
		r.Post("/", h.CollectEvidence)
	})
}

var investigationErrorMappings = []httputil.ErrorMapping{
	{Error: incidents.ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrInvestigationNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidProbability, Status: http.StatusBadRequest},
}

// AddFindingRequest represents the request body for adding a finding.
type AddFindingRequest struct {
	Type        string   `json:"type" validate:"required,oneof=root_cause indicator lateral_movement exfiltration persistence observation"`
	Description string   `json:"description" validate:"required,min=1"`
	Confidence  string   `json:"confidence" validate:"required,oneof=high medium low"`
	EvidenceIDs []string `json:"evidence_ids"`
	Impact      string   `json:"impact"`
}

// AddHypothesisRequest represents the request body for adding a hypothesis.
type AddHypothesisRequest struct {
	Description string   `json:"description" validate:"required,min=1"`
	Supporting  []string `json:"supporting"`
	Refuting    []string `json:"refuting"`
	Probability int      `json:"probability" validate:"gte=0,lte=100"`
}

// AddForensicEventRequest represents the request body for a forensic
// timeline event.
type AddForensicEventRequest struct {
	Source      string `json:"source" validate:"required"`
	Description string `json:"description" validate:"required,min=1"`
}

// AddRecommendationRequest represents the request body for a recommendation.
type AddRecommendationRequest struct {
	Recommendation string `json:"recommendation" validate:"required,min=1"`
}

// CollectEvidenceRequest represents the request body for vaulting evidence.
type CollectEvidenceRequest struct {
	Type        string `json:"type" validate:"required,oneof=log network_capture disk_image memory_dump screenshot document other"`
	Description string `json:"description" validate:"required,min=1"`
	Source      string `json:"source" validate:"required"`
	Location    string `json:"location"`
	Payload     any    `json:"payload"`
}

// Start handles POST /incidents/{id}/investigation request.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Start(r.Context(), chi.URLParam(r, "id"), httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, inv)
}

// Get handles GET /incidents/{id}/investigation request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, inv)
}

// AddFinding handles POST /incidents/{id}/investigation/findings request.
func (h *Handler) AddFinding(w http.ResponseWriter, r *http.Request) {
	var req AddFindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	finding, err := h.service.AddFinding(r.Context(), chi.URLParam(r, "id"), domain.Finding{
		Type:        domain.FindingType(req.Type),
		Description: req.Description,
		Confidence:  domain.Confidence(req.Confidence),
		EvidenceIDs: req.EvidenceIDs,
		Impact:      req.Impact,
	}, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, finding)
}

// AddHypothesis handles POST /incidents/{id}/investigation/hypotheses request.
func (h *Handler) AddHypothesis(w http.ResponseWriter, r *http.Request) {
	var req AddHypothesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	hyp, err := h.service.AddHypothesis(r.Context(), chi.URLParam(r, "id"), domain.Hypothesis{
		Description: req.Description,
		Supporting:  req.Supporting,
		Refuting:    req.Refuting,
		Probability: req.Probability,
	}, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, hyp)
}

// AddForensicEvent handles POST /incidents/{id}/investigation/forensic-events request.
func (h *Handler) AddForensicEvent(w http.ResponseWriter, r *http.Request) {
	var req AddForensicEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	err := h.service.AddForensicEvent(chi.URLParam(r, "id"), domain.ForensicEvent{
		Source:      req.Source,
		Description: req.Description,
		AddedBy:     httputil.Actor(r),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusNoContent, nil)
}

// AddRecommendation handles POST /incidents/{id}/investigation/recommendations request.
func (h *Handler) AddRecommendation(w http.ResponseWriter, r *http.Request) {
	var req AddRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.AddRecommendation(chi.URLParam(r, "id"), req.Recommendation); err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusNoContent, nil)
}

// CollectEvidence handles POST /incidents/{id}/evidence request.
func (h *Handler) CollectEvidence(w http.ResponseWriter, r *http.Request) {
	var req CollectEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	ev, err := h.service.CollectEvidence(r.Context(), chi.URLParam(r, "id"), CollectInput{
		Type:        domain.EvidenceType(req.Type),
		Description: req.Description,
		Source:      req.Source,
		Location:    req.Location,
		Payload:     req.Payload,
	}, httputil.Actor(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, ev)
}

// ListEvidence handles GET /incidents/{id}/evidence request.
func (h *Handler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	evidence, err := h.service.EvidenceFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, investigationErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, evidence)
}
