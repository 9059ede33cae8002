package patients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for patient search and lookup.
type Handler struct {
	repo     *Repository
	searcher *Searcher
	logger   *logging.Logger
}

// NewHandler creates a new patients HTTP handler.
func NewHandler(repo *Repository, searcher *Searcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, searcher: searcher, logger: logger}
}

// Search returns patients matching a name, phone or document term.
// GET /api/patients/search?q=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}

	matches, err := h.searcher.Search(r.Context(), clinicID, r.URL.Query().Get("q"))
	if errors.Is(err, ErrTermTooShort) {
		writeError(w, http.StatusBadRequest, "search term must have at least 2 characters")
		return
	}
	if err != nil {
		h.logger.Error("patient search failed", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"patients": matches})
}

// GetByID returns a single patient.
// GET /api/patients/{patientID}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}

	id := chi.URLParam(r, "patientID")
	patient, err := h.repo.GetByID(r.Context(), clinicID, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load patient", "error", err, "patient_id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(patient)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
