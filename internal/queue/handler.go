package queue

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/pkg/logging"
)

// Handler exposes the queue endpoints for the doctor's panel.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get returns today's queue and stats for a doctor.
// GET /api/checkin/queue?doctor_id=
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}
	doctorID := r.URL.Query().Get("doctor_id")
	if doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}

	entries, stats, err := h.svc.Snapshot(r.Context(), clinicID, doctorID)
	if err != nil {
		h.logger.Error("queue snapshot failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue": entries,
		"stats": stats,
	})
}

// Act applies a queue action.
// POST /api/checkin/queue, body {action, queue_id, doctor_id}
func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}

	var body struct {
		Action   string `json:"action"`
		QueueID  string `json:"queue_id"`
		DoctorID string `json:"doctor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry, err := h.svc.Do(r.Context(), clinicID, body.Action, body.QueueID, body.DoctorID)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	case errors.Is(err, ErrDoctorBusy):
		writeError(w, http.StatusConflict, "a patient is already called or in consultation")
		return
	case errors.Is(err, ErrBadTransition):
		writeError(w, http.StatusConflict, "entry is not in a state that allows this action")
		return
	case errors.Is(err, ErrEmptyQueue):
		writeError(w, http.StatusNotFound, "no patients waiting")
		return
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "queue entry not found")
		return
	default:
		h.logger.Error("queue action failed", "error", err, "action", body.Action)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entry)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
