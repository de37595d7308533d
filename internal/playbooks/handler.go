package playbooks

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentineldesk/responder/internal/pkg/httputil"
)

// Handler handles HTTP requests for the playbooks module. Read-only:
// playbooks are loaded at startup, never edited over the API.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new playbooks handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes registers all HTTP routes for the playbooks module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/playbooks", func(r chi.Router) {
		r.Get("/", h.ListPlaybooks)
		r.Get("/{id}", h.GetPlaybook)
	})
}

// ListPlaybooks handles GET /playbooks request.
func (h *Handler) ListPlaybooks(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.registry.All())
}

// GetPlaybook handles GET /playbooks/{id} request.
func (h *Handler) GetPlaybook(w http.ResponseWriter, r *http.Request) {
	pb, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		httputil.Error(w, http.StatusNotFound, "playbook not found")
		return
	}

	httputil.Success(w, http.StatusOK, pb)
}
