package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clinigo/platform/internal/documents"
	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/pkg/logging"
	"golang.org/x/crypto/bcrypt"
)

var ErrWrongPassword = errors.New("profile: current password does not match")

// Handler serves /api/profile for the authenticated staff user.
type Handler struct {
	repo   *Repository
	docs   *documents.Store
	logger *logging.Logger
}

// NewHandler creates the profile HTTP handler. docs may be a disabled store;
// avatar uploads then return 503.
func NewHandler(repo *Repository, docs *documents.Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, docs: docs, logger: logger}
}

// Get handles GET /api/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	p, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateContact handles PATCH /api/profile.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.repo.UpdateContact(r.Context(), userID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)); err != nil {
		h.respondError(w, err, "failed to update profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNotifications handles GET /api/profile/notifications.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	s, err := h.repo.GetNotifications(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to load notification settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": s})
}

// UpdateNotifications handles PATCH /api/profile/notifications.
func (h *Handler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var s NotificationSettings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, ch := range s.Channels {
		if !ValidChannel(ch) {
			writeError(w, http.StatusBadRequest, "unknown notification channel: "+ch)
			return
		}
	}
	if err := h.repo.UpdateNotifications(r.Context(), userID, &s); err != nil {
		h.respondError(w, err, "failed to update notification settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences handles GET /api/profile/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	p, err := h.repo.GetPreferences(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preferences": p})
}

// UpdatePreferences handles PATCH /api/profile/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var p Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.repo.UpdatePreferences(r.Context(), userID, &p); err != nil {
		h.respondError(w, err, "failed to update preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdatePassword handles PATCH /api/profile/password. The current password
// must verify before the hash is replaced.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}
	if err := h.verifyPassword(r, userID, req.CurrentPassword); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			writeError(w, http.StatusForbidden, "current password is incorrect")
			return
		}
		h.respondError(w, err, "failed to change password")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, err, "failed to change password")
		return
	}
	if err := h.repo.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		h.respondError(w, err, "failed to change password")
		return
	}
	h.logger.Info("password changed", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

type avatarRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// UpdateAvatar handles PATCH /api/profile/avatar.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	clinicID, _ := tenancy.ClinicIDFromContext(r.Context())

	var req avatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.docs.Upload(r.Context(), clinicID, userID, req.FileName, req.ContentType, req.Data)
	switch {
	case err == nil:
	case errors.Is(err, documents.ErrNotEnabled):
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	case errors.Is(err, documents.ErrTooLarge), errors.Is(err, documents.ErrBadMIMEType):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.respondError(w, err, "failed to upload avatar")
		return
	}

	if err := h.repo.UpdateAvatar(r.Context(), userID, doc.Key); err != nil {
		h.respondError(w, err, "failed to save avatar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"avatar_key": doc.Key})
}

type deleteRequest struct {
	Password string `json:"password"`
}

// DeleteAccount handles POST /api/profile/delete-account. Soft delete with a
// password confirmation.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.verifyPassword(r, userID, req.Password); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			writeError(w, http.StatusForbidden, "password is incorrect")
			return
		}
		h.respondError(w, err, "failed to delete account")
		return
	}
	if err := h.repo.SoftDelete(r.Context(), userID); err != nil {
		h.respondError(w, err, "failed to delete account")
		return
	}
	h.logger.Info("account soft-deleted", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) verifyPassword(r *http.Request, userID, password string) error {
	hash, err := h.repo.GetPasswordHash(r.Context(), userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrWrongPassword
	}
	return nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
