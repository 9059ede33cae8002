package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinigo/platform/internal/appointments"
	"github.com/clinigo/platform/internal/booking"
	"github.com/clinigo/platform/internal/checkin"
	"github.com/clinigo/platform/internal/clinics"
	"github.com/clinigo/platform/internal/doctors"
	httpmiddleware "github.com/clinigo/platform/internal/http/middleware"
	"github.com/clinigo/platform/internal/integrations"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/internal/payments"
	"github.com/clinigo/platform/internal/profile"
	"github.com/clinigo/platform/internal/queue"
	"github.com/clinigo/platform/internal/realtime"
	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/internal/triage"
	"github.com/clinigo/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ClinicsHandler      *clinics.Handler
	ClinicStatsHandler  *clinics.StatsHandler
	ClinicRepo          *clinics.Repository
	DoctorsHandler      *doctors.Handler
	PatientsHandler     *patients.Handler
	AppointmentsHandler *appointments.Handler
	BookingHandler      *booking.Handler
	PaymentsWebhook     *payments.WebhookHandler
	QueueHandler        *queue.Handler
	QueueHub            *realtime.Hub
	CheckinHandler      *checkin.Handler
	IntegrationsHandler *integrations.Handler
	ProfileHandler      *profile.Handler
	TriageHandler       *triage.Handler
	SessionSecret       string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Rate limiting for the unauthenticated booking surface
	PublicRateLimit float64
	PublicRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.PaymentsWebhook != nil {
			public.Post("/webhooks/payments", cfg.PaymentsWebhook.Handle)
		}
		// WebSocket feed for the doctor's panel; the upgrade request cannot
		// carry an Authorization header from the browser API.
		if cfg.QueueHub != nil {
			public.Get("/api/checkin/queue/ws", cfg.QueueHub.ServeWS)
		}
	})

	// Public booking-page API, rate limited per client IP
	r.Group(func(public chi.Router) {
		if cfg.PublicRateLimit > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.PublicRateLimit, cfg.PublicRateBurst))
		}

		if cfg.ClinicsHandler != nil {
			public.Post("/api/clinics", cfg.ClinicsHandler.Register)
			public.Post("/api/clinics/prefill", cfg.ClinicsHandler.PrefillFromWebsite)
			public.Get("/api/clinics/{slug}", cfg.ClinicsHandler.GetBySlug)
		}
		if cfg.DoctorsHandler != nil {
			public.Get("/api/doctors/{doctorID}", cfg.DoctorsHandler.GetByID)
			public.Get("/api/doctors/{doctorID}/health-insurances", cfg.DoctorsHandler.ListInsurancePlans)
			if cfg.ClinicRepo != nil {
				public.Get("/api/clinics/{slug}/doctors", listDoctorsBySlug(cfg))
			}
		}
		if cfg.BookingHandler != nil {
			public.Post("/api/booking", cfg.BookingHandler.Book)
		}
		if cfg.CheckinHandler != nil {
			public.Post("/api/checkin/pre-checkin", cfg.CheckinHandler.PreCheckin)
		}
		if cfg.TriageHandler != nil {
			public.Route("/api/triage", func(r chi.Router) {
				r.Post("/start", cfg.TriageHandler.Start)
				r.Post("/message", cfg.TriageHandler.Message)
				r.Get("/jobs/{jobID}", cfg.TriageHandler.Job)
			})
		}
	})

	// Staff routes (protected by the session JWT)
	if cfg.SessionSecret != "" {
		r.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.SessionJWT(cfg.SessionSecret))

			if cfg.AppointmentsHandler != nil {
				staff.Route("/api/appointments", func(r chi.Router) {
					r.Get("/", cfg.AppointmentsHandler.List)
					r.Post("/manual", cfg.AppointmentsHandler.CreateManual)
					r.Patch("/{appointmentID}", cfg.AppointmentsHandler.UpdateManual)
					r.Patch("/{appointmentID}/reschedule", cfg.AppointmentsHandler.Reschedule)
					r.Post("/{appointmentID}/cancel", cfg.AppointmentsHandler.Cancel)
				})
			}
			if cfg.PatientsHandler != nil {
				staff.Route("/api/patients", func(r chi.Router) {
					r.Get("/search", cfg.PatientsHandler.Search)
				r.Post("/search", cfg.PatientsHandler.Search)
					r.Get("/{patientID}", cfg.PatientsHandler.GetByID)
				})
			}
			if cfg.DoctorsHandler != nil {
				staff.Get("/api/doctors", listDoctorsForClinic(cfg))
			}
			if cfg.QueueHandler != nil {
				staff.Get("/api/checkin/queue", cfg.QueueHandler.Get)
				staff.Post("/api/checkin/queue", cfg.QueueHandler.Act)
			}
			if cfg.CheckinHandler != nil {
				staff.Post("/api/checkin/scan", cfg.CheckinHandler.Scan)
			}
			if cfg.IntegrationsHandler != nil {
				staff.Route("/api/integrations/settings", func(r chi.Router) {
					r.Get("/", cfg.IntegrationsHandler.Get)
					r.Post("/", cfg.IntegrationsHandler.Update)
					r.Delete("/", cfg.IntegrationsHandler.Delete)
				})
			}
			if cfg.ProfileHandler != nil {
				staff.Route("/api/profile", func(r chi.Router) {
					r.Get("/", cfg.ProfileHandler.Get)
					r.Patch("/", cfg.ProfileHandler.UpdateContact)
					r.Get("/notifications", cfg.ProfileHandler.GetNotifications)
					r.Patch("/notifications", cfg.ProfileHandler.UpdateNotifications)
					r.Get("/preferences", cfg.ProfileHandler.GetPreferences)
					r.Patch("/preferences", cfg.ProfileHandler.UpdatePreferences)
					r.Patch("/password", cfg.ProfileHandler.UpdatePassword)
					r.Patch("/avatar", cfg.ProfileHandler.UpdateAvatar)
					r.Post("/delete-account", cfg.ProfileHandler.DeleteAccount)
				})
			}
			if cfg.ClinicStatsHandler != nil {
				staff.Get("/api/admin/stats", cfg.ClinicStatsHandler.GetStats)
			}
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// listDoctorsBySlug resolves the clinic slug from the booking page URL and
// serves the public doctor list for that clinic.
func listDoctorsBySlug(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		clinic, err := cfg.ClinicRepo.GetBySlug(r.Context(), slug)
		if errors.Is(err, clinics.ErrNotFound) {
			writeError(w, http.StatusNotFound, "clinic not found")
			return
		}
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Error("failed to resolve clinic slug", "error", err, "slug", slug)
			}
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		cfg.DoctorsHandler.ListByClinic(w, r, clinic.ID)
	}
}

// listDoctorsForClinic serves the agenda's doctor list scoped to the
// clinic of the authenticated session.
func listDoctorsForClinic(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "clinic context required")
			return
		}
		cfg.DoctorsHandler.ListByClinic(w, r, clinicID)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
