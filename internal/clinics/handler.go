package clinics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clinigo/platform/internal/plans"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

var clinicsTracer = otel.Tracer("clinigo.internal.clinics")

// RegisterRequest is the payload submitted by the registration wizard's
// final review step.
type RegisterRequest struct {
	ClinicName    string  `json:"clinic_name"`
	Slug          string  `json:"slug"`
	TaxID         string  `json:"tax_id"`
	Phone         string  `json:"phone"`
	PlanType      string  `json:"plan_type"`
	Address       Address `json:"address"`
	AdminEmail    string  `json:"admin_email"`
	AdminName     string  `json:"admin_name"`
	AdminPassword string  `json:"admin_password"`
}

func (req *RegisterRequest) validate() string {
	switch {
	case strings.TrimSpace(req.ClinicName) == "":
		return "clinic_name is required"
	case strings.TrimSpace(req.AdminEmail) == "":
		return "admin_email is required"
	case strings.TrimSpace(req.AdminName) == "":
		return "admin_name is required"
	case len(req.AdminPassword) < 8:
		return "admin_password must be at least 8 characters"
	case strings.TrimSpace(req.Address.City) == "":
		return "address.city is required"
	}
	if _, ok := plans.Parse(req.PlanType); !ok {
		return "plan_type is not a known tier"
	}
	return ""
}

// Handler provides HTTP endpoints for clinic registration and lookup.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new clinics HTTP handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Register creates a clinic plus its admin user.
// POST /api/clinics
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := clinicsTracer.Start(r.Context(), "clinics.register")
	defer span.End()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	// The wizard derives the slug from the clinic name but lets the user
	// edit it; an explicit slug always wins.
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.ClinicName)
	}
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug could not be derived from clinic_name")
		return
	}

	plan, _ := plans.Parse(req.PlanType)
	clinic := &Clinic{
		Name:    strings.TrimSpace(req.ClinicName),
		Slug:    slug,
		TaxID:   strings.TrimSpace(req.TaxID),
		Phone:   strings.TrimSpace(req.Phone),
		Plan:    plan,
		Address: req.Address,
	}
	span.SetAttributes(attribute.String("clinigo.clinic_slug", slug))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash admin password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.repo.CreateWithAdmin(ctx, clinic, strings.ToLower(req.AdminEmail), req.AdminName, string(hash)); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			writeError(w, http.StatusConflict, "slug already taken")
			return
		}
		if errors.Is(err, ErrTaxIDTaken) {
			writeError(w, http.StatusConflict, "tax_id already registered")
			return
		}
		h.logger.Error("clinic registration failed", "error", err, "slug", slug)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("clinic registered", "clinic_id", clinic.ID, "slug", clinic.Slug, "plan", clinic.Plan)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"clinic_id": clinic.ID,
		"slug":      clinic.Slug,
	})
}

// GetBySlug returns the public clinic projection used by the booking page.
// GET /api/clinics/{slug}
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug required")
		return
	}

	clinic, err := h.repo.GetBySlug(r.Context(), slug)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "clinic not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load clinic", "error", err, "slug", slug)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(clinic)
}

// PrefillFromWebsite scrapes a clinic website to pre-populate the
// registration wizard.
// POST /api/clinics/prefill
func (h *Handler) PrefillFromWebsite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WebsiteURL string `json:"website_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := ScrapeClinicPrefill(r.Context(), req.WebsiteURL)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "website_url") {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		writeError(w, http.StatusBadGateway, "could not reach website")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
