package triage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinigo/platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler serves the public triage chat endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the triage HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Start handles POST /api/triage/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.service.Start(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingComplaint) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to start triage", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start triage")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// Message handles POST /api/triage/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.service.Message(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingSession) || errors.Is(err, ErrMissingMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to queue triage message", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue message")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// Job handles GET /api/triage/jobs/{jobID} for polling clients.
func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.service.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to load triage job", "error", err, "job_id", jobID)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   job.JobID,
		"status":   job.Status,
		"response": job.Response,
		"error":    job.ErrorMessage,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
