package checkin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clinigo/platform/internal/queue"
	"github.com/clinigo/platform/pkg/logging"
)

// Handler serves the public pre-check-in endpoint and the front desk scan.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the check-in HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// PreCheckin handles POST /api/checkin/pre-checkin.
func (h *Handler) PreCheckin(w http.ResponseWriter, r *http.Request) {
	var req PreCheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.PreCheckin(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingPatient), errors.Is(err, ErrMissingDoctor), errors.Is(err, ErrConsentNeeded):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("pre-checkin failed", "error", err)
			writeError(w, http.StatusInternalServerError, "pre-check-in failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type scanRequest struct {
	ClinicID    string `json:"clinic_id"`
	Token       string `json:"qr_token"`
	PatientName string `json:"patient_name"`
}

// Scan handles POST /api/checkin/scan at the front desk.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "qr_token is required")
		return
	}

	entry, err := h.service.Scan(r.Context(), req.ClinicID, req.Token, req.PatientName)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			writeError(w, http.StatusGone, "qr code expired, please check in at the desk")
		case errors.Is(err, ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "qr code not recognized")
		case errors.Is(err, queue.ErrNotFound):
			writeError(w, http.StatusNotFound, "appointment not found")
		default:
			h.logger.Error("qr scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "check-in failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"entry": entry})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
