package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinigo/platform/internal/plans"
	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/pkg/logging"
)

// planSource resolves a clinic's current subscription tier.
type planSource interface {
	GetPlan(ctx context.Context, clinicID string) (plans.Plan, error)
}

// Handler serves /api/integrations/settings for staff users.
type Handler struct {
	store  *Store
	plans  planSource
	logger *logging.Logger
}

// NewHandler creates the integrations HTTP handler.
func NewHandler(store *Store, plans planSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, plans: plans, logger: logger}
}

// catalogEntry is one row of the integration listing.
type catalogEntry struct {
	Integration
	Enabled   bool `json:"enabled"`
	Available bool `json:"available"`
}

// Get handles GET /api/integrations/settings. Without integration_id it
// lists the catalog with availability for the clinic's plan; with one it
// returns that integration's settings with credentials masked.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing clinic context")
		return
	}

	integrationID := r.URL.Query().Get("integration_id")
	if integrationID == "" {
		h.list(w, r, clinicID)
		return
	}

	integration, found := Lookup(integrationID)
	if !found {
		writeError(w, http.StatusNotFound, "unknown integration")
		return
	}

	settings, err := h.store.Get(r.Context(), clinicID, integrationID)
	if err != nil {
		h.logger.Error("failed to load integration settings", "error", err, "integration_id", integrationID)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"integration": integration,
		"settings":    masked(settings),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, clinicID string) {
	plan, err := h.plans.GetPlan(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("failed to load clinic plan", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	entries := make([]catalogEntry, 0, len(catalog))
	for _, integration := range Catalog() {
		settings, err := h.store.Get(r.Context(), clinicID, integration.ID)
		if err != nil {
			h.logger.Error("failed to load integration settings", "error", err, "integration_id", integration.ID)
			writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		entries = append(entries, catalogEntry{
			Integration: integration,
			Enabled:     settings.Enabled,
			Available:   plans.MeetsMinimum(plan, integration.MinimumPlan),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"integrations": entries})
}

type updateRequest struct {
	Enabled     bool              `json:"enabled"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

// Update handles POST /api/integrations/settings?integration_id=...
// Enabling an integration above the clinic's plan tier is rejected.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing clinic context")
		return
	}

	integrationID := r.URL.Query().Get("integration_id")
	integration, found := Lookup(integrationID)
	if !found {
		writeError(w, http.StatusNotFound, "unknown integration")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled {
		plan, err := h.plans.GetPlan(r.Context(), clinicID)
		if err != nil {
			h.logger.Error("failed to load clinic plan", "error", err, "clinic_id", clinicID)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		if !plans.MeetsMinimum(plan, integration.MinimumPlan) {
			writeError(w, http.StatusForbidden, "integration requires a higher plan")
			return
		}
	}

	// Masked credential values sent back unchanged keep the stored value.
	current, err := h.store.Get(r.Context(), clinicID, integrationID)
	if err != nil {
		h.logger.Error("failed to load integration settings", "error", err, "integration_id", integrationID)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	credentials := mergeCredentials(current.Credentials, req.Credentials)

	settings := &Settings{
		ClinicID:      clinicID,
		IntegrationID: integrationID,
		Enabled:       req.Enabled,
		Credentials:   credentials,
		Options:       req.Options,
	}
	if err := h.store.Set(r.Context(), settings); err != nil {
		h.logger.Error("failed to save integration settings", "error", err, "integration_id", integrationID)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	h.logger.Info("integration settings updated", "clinic_id", clinicID,
		"integration_id", integrationID, "enabled", req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"settings": masked(settings)})
}

// Delete handles DELETE /api/integrations/settings?integration_id=...
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing clinic context")
		return
	}

	integrationID := r.URL.Query().Get("integration_id")
	if _, found := Lookup(integrationID); !found {
		writeError(w, http.StatusNotFound, "unknown integration")
		return
	}

	if err := h.store.Delete(r.Context(), clinicID, integrationID); err != nil {
		h.logger.Error("failed to delete integration settings", "error", err, "integration_id", integrationID)
		writeError(w, http.StatusInternalServerError, "failed to delete settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// masked returns a copy with credential values replaced except the tail.
func masked(s *Settings) *Settings {
	if len(s.Credentials) == 0 {
		return s
	}
	out := *s
	out.Credentials = make(map[string]string, len(s.Credentials))
	for k, v := range s.Credentials {
		out.Credentials[k] = maskValue(v)
	}
	return &out
}

func maskValue(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

// mergeCredentials keeps the stored value when the client echoes a masked one.
func mergeCredentials(stored, incoming map[string]string) map[string]string {
	if incoming == nil {
		return stored
	}
	out := make(map[string]string, len(incoming))
	for k, v := range incoming {
		if isMasked(v) {
			if prev, ok := stored[k]; ok {
				out[k] = prev
				continue
			}
		}
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func isMasked(v string) bool {
	return v != "" && strings.Contains(v, "*")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
