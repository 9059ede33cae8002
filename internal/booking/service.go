package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinigo/platform/internal/appointments"
	"github.com/clinigo/platform/internal/clinics"
	"github.com/clinigo/platform/internal/events"
	"github.com/clinigo/platform/internal/observability/metrics"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/internal/payments"
	"github.com/clinigo/platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinigo.internal.booking")

// Booking validation errors.
var (
	ErrMissingSlot    = errors.New("booking: appointment_date and appointment_time are required")
	ErrMissingDoctor  = errors.New("booking: doctor_id is required")
	ErrMissingPatient = errors.New("booking: patient name and phone are required")
	ErrClinicNotFound = errors.New("booking: clinic not found")
)

// Request is the public booking payload submitted from a clinic's page.
type Request struct {
	ClinicSlug string `json:"clinic_slug"`
	DoctorID   string `json:"doctor_id"`
	Date       string `json:"appointment_date"`
	Time       string `json:"appointment_time"`
	Type       string `json:"type"`

	PaymentType         string `json:"payment_type"`
	InsuranceID         string `json:"health_insurance_id,omitempty"`
	InsuranceCardNumber string `json:"insurance_card_number,omitempty"`

	Patient struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Email    string `json:"email,omitempty"`
		Document string `json:"document,omitempty"`
	} `json:"patient"`
}

// Result is the booking outcome: either an immediate appointment id or a
// gateway handoff URL.
type Result struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	Status        string `json:"status"`
	PriceCents    int64  `json:"price_cents"`
	PricePending  bool   `json:"price_pending,omitempty"`
}

// clinicSource resolves a clinic slug to its tenant record.
type clinicSource interface {
	GetBySlug(ctx context.Context, slug string) (*clinics.Clinic, error)
}

// patientResolver materializes the nested patient into a record.
type patientResolver interface {
	FindOrCreate(ctx context.Context, p *patients.Patient) (*patients.Patient, error)
}

// appointmentCreator persists the appointment plus its outbox event.
type appointmentCreator interface {
	Create(ctx context.Context, a *appointments.Appointment, eventType string, payload events.AppointmentPayload) error
}

// paymentRecorder stores the pending payment for the webhook to find.
type paymentRecorder interface {
	Create(ctx context.Context, p *payments.Payment) error
}

// Service runs the public booking flow.
type Service struct {
	clinics      clinicSource
	patients     patientResolver
	appointments appointmentCreator
	pricer       *Pricer
	provider     payments.Provider
	payments     paymentRecorder
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
}

// NewService creates the booking service. provider may be nil, in which
// case every booking confirms immediately.
func NewService(clinicSrc clinicSource, patientSrc patientResolver, apptSrc appointmentCreator,
	pricer *Pricer, provider payments.Provider, paymentSrc paymentRecorder,
	m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		clinics:      clinicSrc,
		patients:     patientSrc,
		appointments: apptSrc,
		pricer:       pricer,
		provider:     provider,
		payments:     paymentSrc,
		metrics:      m,
		logger:       logger,
	}
}

func (r *Request) validate() error {
	if strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.Time) == "" {
		return ErrMissingSlot
	}
	if strings.TrimSpace(r.DoctorID) == "" {
		return ErrMissingDoctor
	}
	if strings.TrimSpace(r.Patient.Name) == "" || strings.TrimSpace(r.Patient.Phone) == "" {
		return ErrMissingPatient
	}
	return nil
}

// Book creates the patient if needed and the appointment, handing off to
// the payment gateway for private consultations when one is configured.
func (s *Service) Book(ctx context.Context, req *Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "booking.book")
	defer span.End()
	started := time.Now()

	if err := req.validate(); err != nil {
		return nil, err
	}

	clinic, err := s.clinics.GetBySlug(ctx, req.ClinicSlug)
	if errors.Is(err, clinics.ErrNotFound) {
		return nil, ErrClinicNotFound
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("clinigo.clinic_id", clinic.ID))

	patient, err := s.patients.FindOrCreate(ctx, &patients.Patient{
		ClinicID: clinic.ID,
		Name:     req.Patient.Name,
		Phone:    req.Patient.Phone,
		Email:    req.Patient.Email,
		Document: req.Patient.Document,
	})
	if err != nil {
		return nil, err
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = appointments.PaymentPrivate
	}
	cents, pending, err := s.pricer.Quote(ctx, req.DoctorID, paymentType, req.InsuranceID)
	if err != nil {
		s.metrics.ObserveBooking(paymentType, "error")
		return nil, err
	}

	gateway := s.provider != nil && paymentType == appointments.PaymentPrivate && cents > 0
	status := appointments.StatusConfirmed
	if gateway {
		status = appointments.StatusAwaitingPayment
	}

	kind := req.Type
	if kind == "" {
		kind = appointments.TypeInPerson
	}
	appt := &appointments.Appointment{
		ClinicID:            clinic.ID,
		DoctorID:            req.DoctorID,
		PatientID:           patient.ID,
		Date:                req.Date,
		Time:                req.Time,
		DurationMinutes:     30,
		Type:                kind,
		Status:              status,
		PaymentType:         paymentType,
		InsuranceID:         req.InsuranceID,
		InsuranceCardNumber: req.InsuranceCardNumber,
		PriceCents:          cents,
		PricePending:        pending,
	}
	payload := events.AppointmentPayload{
		DoctorID:    appt.DoctorID,
		PatientID:   appt.PatientID,
		Date:        appt.Date,
		Time:        appt.Time,
		Status:      status,
		NotifyEmail: patient.Email != "",
	}
	if err := s.appointments.Create(ctx, appt, events.AppointmentCreated, payload); err != nil {
		s.metrics.ObserveBooking(paymentType, "error")
		return nil, err
	}

	result := &Result{
		Status:       status,
		PriceCents:   cents,
		PricePending: pending,
	}

	if gateway {
		checkout, err := s.provider.CreateCheckout(ctx, payments.CheckoutParams{
			AppointmentID: appt.ID,
			ClinicID:      clinic.ID,
			AmountCents:   cents,
			PatientName:   patient.Name,
			Description:   "Consulta " + req.Date + " " + req.Time,
		})
		if err != nil {
			s.metrics.ObserveBooking(paymentType, "error")
			return nil, err
		}
		if s.payments != nil {
			if err := s.payments.Create(ctx, &payments.Payment{
				ClinicID:      clinic.ID,
				AppointmentID: appt.ID,
				AmountCents:   cents,
				ProviderID:    checkout.ProviderID,
			}); err != nil {
				return nil, err
			}
		}
		result.PaymentURL = checkout.URL
	} else {
		result.AppointmentID = appt.ID
	}

	s.metrics.ObserveBooking(paymentType, "success")
	s.metrics.ObserveBookingLatency(paymentType, time.Since(started).Seconds())
	s.logger.Info("booking completed", "appointment_id", appt.ID, "status", status, "payment_type", paymentType)
	return result, nil
}
