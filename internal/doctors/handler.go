package doctors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clinigo/platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for doctor lookup.
type Handler struct {
	repo   *Repository
	lister *CachedLister
	logger *logging.Logger
}

// NewHandler creates a new doctors HTTP handler. lister may be nil when no
// Redis cache is configured.
func NewHandler(repo *Repository, lister *CachedLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, lister: lister, logger: logger}
}

// GetByID returns a doctor with the private consultation price.
// GET /api/doctors/{doctorID}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "doctorID")
	doctor, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load doctor", "error", err, "doctor_id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, doctor)
}

// ListByClinic returns the active doctors of a clinic.
// GET /api/clinics/{slug}/doctors is routed here with the clinic id resolved;
// the admin agenda calls it with clinic_id from the session.
func (h *Handler) ListByClinic(w http.ResponseWriter, r *http.Request, clinicID string) {
	var (
		list []Doctor
		err  error
	)
	if h.lister != nil {
		list, err = h.lister.ListByClinic(r.Context(), clinicID)
	} else {
		list, err = h.repo.ListByClinic(r.Context(), clinicID)
	}
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []Doctor{}
	}
	writeJSON(w, map[string]any{"doctors": list})
}

// ListInsurancePlans returns the insurance plans a doctor accepts.
// GET /api/doctors/{doctorID}/health-insurances?status=ACTIVE
func (h *Handler) ListInsurancePlans(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "doctorID")
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && status != InsuranceActive && status != InsuranceInactive {
		writeError(w, http.StatusBadRequest, "status must be ACTIVE or INACTIVE")
		return
	}

	plans, err := h.repo.ListInsurancePlans(r.Context(), id, status)
	if err != nil {
		h.logger.Error("failed to list insurance plans", "error", err, "doctor_id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if plans == nil {
		plans = []InsurancePlan{}
	}
	writeJSON(w, map[string]any{"health_insurances": plans})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
