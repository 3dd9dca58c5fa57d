package clinic

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// Handler exposes clinic settings to the staff dashboard.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a clinic settings handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// GetClinic handles GET /api/clinics/{id}.
func (h *Handler) GetClinic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "clinic not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load clinic", "error", err, "id", id)
		http.Error(w, "failed to load clinic", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

type updateClinicRequest struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// UpdateClinic handles PUT /api/clinics/{id}. Changes are picked up by the
// very next conversation turn because the orchestrator never caches.
func (h *Handler) UpdateClinic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), &Clinic{
		ID:           id,
		Name:         req.Name,
		Instructions: req.Instructions,
	})
	if err != nil {
		h.logger.Error("failed to update clinic", "error", err, "id", id)
		http.Error(w, "failed to update clinic", http.StatusInternalServerError)
		return
	}

	h.logger.Info("clinic settings updated", "id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}
