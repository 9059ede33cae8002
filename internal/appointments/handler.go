package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides the staff-facing appointment endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new appointments HTTP handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateManual creates an appointment from the staff modal.
// POST /api/appointments/manual
func (h *Handler) CreateManual(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}

	var payload ManualPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, err := h.svc.CreateManual(r.Context(), clinicID, &payload)
	if err != nil {
		h.respondError(w, err, clinicID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(a)
}

// UpdateManual edits an appointment using the shared payload.
// PATCH /api/appointments/{appointmentID}
func (h *Handler) UpdateManual(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}
	id := chi.URLParam(r, "appointmentID")

	var payload ManualPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// A body holding only a new slot is a reschedule, not a full edit.
	if payload.rescheduleOnly() {
		a, _, err := h.svc.Reschedule(r.Context(), clinicID, id, payload.Date, payload.Time)
		if err != nil {
			h.respondError(w, err, clinicID)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
		return
	}

	a, err := h.svc.UpdateManual(r.Context(), clinicID, id, &payload)
	if err != nil {
		h.respondError(w, err, clinicID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a)
}

// Reschedule moves an appointment to a new slot.
// PATCH /api/appointments/{appointmentID}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}
	id := chi.URLParam(r, "appointmentID")

	var body struct {
		Date string `json:"appointment_date"`
		Time string `json:"appointment_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, changed, err := h.svc.Reschedule(r.Context(), clinicID, id, body.Date, body.Time)
	if err != nil {
		h.respondError(w, err, clinicID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"appointment": a,
		"changed":     changed,
	})
}

// Cancel cancels an appointment with a mandatory reason.
// POST /api/appointments/{appointmentID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}
	id := chi.URLParam(r, "appointmentID")

	var body struct {
		Reason string `json:"cancellation_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, err := h.svc.Cancel(r.Context(), clinicID, id, body.Reason)
	if err != nil {
		h.respondError(w, err, clinicID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a)
}

// List returns the agenda for a visible date range.
// GET /api/appointments?doctor_id=&from=&to=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}

	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	list, err := h.svc.List(r.Context(), clinicID, q.Get("doctor_id"), from, to)
	if err != nil {
		h.logger.Error("agenda listing failed", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []Appointment{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"appointments": list})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, clinicID string) {
	switch {
	case errors.Is(err, ErrPatientIdentity),
		errors.Is(err, ErrMissingSlot),
		errors.Is(err, ErrMissingDoctor),
		errors.Is(err, ErrBadType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrReasonRequired):
		writeError(w, http.StatusUnprocessableEntity, "cancellation_reason is required")
	case errors.Is(err, ErrNotReschedulable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSlotTaken):
		writeError(w, http.StatusConflict, "doctor already has an appointment at that slot")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	default:
		h.logger.Error("appointment operation failed", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
