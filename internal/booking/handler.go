package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinigo/platform/internal/appointments"
	"github.com/clinigo/platform/pkg/logging"
)

// Handler exposes the public booking endpoint.
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

// Book creates a booking from a clinic's public page.
// POST /api/booking
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.svc.Book(r.Context(), &req)
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingSlot),
		errors.Is(err, ErrMissingDoctor),
		errors.Is(err, ErrMissingPatient):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrClinicNotFound):
		writeError(w, http.StatusNotFound, "clinic not found")
		return
	case errors.Is(err, appointments.ErrSlotTaken):
		writeError(w, http.StatusConflict, "that slot was just taken, pick another time")
		return
	default:
		h.logger.Error("booking failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
