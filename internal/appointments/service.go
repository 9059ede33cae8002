package appointments

import (
	"context"
	"strings"

	"github.com/clinigo/platform/internal/events"
	"github.com/clinigo/platform/internal/observability/metrics"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinigo.internal.appointments")

// patientResolver materializes quick registrations into patient records.
type patientResolver interface {
	FindOrCreate(ctx context.Context, p *patients.Patient) (*patients.Patient, error)
}

// PriceQuoter returns the authoritative price for a doctor/payment pairing.
// pending is true when insurance was chosen without a plan.
type PriceQuoter interface {
	Quote(ctx context.Context, doctorID, paymentType, insuranceID string) (cents int64, pending bool, err error)
}

// Service applies the scheduling business rules on top of the repository.
type Service struct {
	repo     *Repository
	patients patientResolver
	quoter   PriceQuoter
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewService creates the appointments service. metrics may be nil.
func NewService(repo *Repository, resolver patientResolver, quoter PriceQuoter, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, patients: resolver, quoter: quoter, metrics: m, logger: logger}
}

const defaultDurationMinutes = 30

// CreateManual creates an appointment from the staff modal. Notifications
// follow the payload's channel toggles.
func (s *Service) CreateManual(ctx context.Context, clinicID string, p *ManualPayload) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.create_manual")
	defer span.End()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	patientID, err := s.resolvePatient(ctx, clinicID, p)
	if err != nil {
		return nil, err
	}

	a := s.fromPayload(clinicID, patientID, p, false)
	a.Status = StatusConfirmed

	if s.quoter != nil {
		cents, pending, err := s.quoter.Quote(ctx, p.DoctorID, a.PaymentType, p.InsuranceID)
		if err != nil {
			return nil, err
		}
		a.PriceCents = cents
		a.PricePending = pending
	}

	payload := s.eventPayload(a, p)
	if err := s.repo.Create(ctx, a, events.AppointmentCreated, payload); err != nil {
		s.metrics.ObserveTransition("create_failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("clinigo.appointment_id", a.ID))
	s.metrics.ObserveTransition("created")
	s.logger.Info("appointment created", "appointment_id", a.ID, "doctor_id", a.DoctorID, "date", a.Date, "time", a.Time)
	return a, nil
}

// UpdateManual edits an appointment with the shared payload. With no
// explicit toggles nobody is notified, and schedule constraints are
// ignored by default so staff can keep an existing out-of-hours slot.
func (s *Service) UpdateManual(ctx context.Context, clinicID, id string, p *ManualPayload) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.update_manual")
	defer span.End()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	patientID, err := s.resolvePatient(ctx, clinicID, p)
	if err != nil {
		return nil, err
	}

	a := s.fromPayload(clinicID, patientID, p, true)
	a.ID = existing.ID
	a.Status = existing.Status
	a.CreatedAt = existing.CreatedAt
	a.PriceCents = existing.PriceCents
	a.PricePending = existing.PricePending
	if s.quoter != nil && (a.PaymentType != existing.PaymentType || a.InsuranceID != existing.InsuranceID || a.DoctorID != existing.DoctorID) {
		cents, pending, err := s.quoter.Quote(ctx, a.DoctorID, a.PaymentType, a.InsuranceID)
		if err != nil {
			return nil, err
		}
		a.PriceCents = cents
		a.PricePending = pending
	}

	payload := s.eventPayload(a, p)
	if err := s.repo.Update(ctx, a, events.AppointmentUpdated, payload); err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("updated")
	return a, nil
}

// Reschedule moves an appointment to a new slot. Moving to the identical
// slot is a no-op: no update and no event. Returns whether anything changed.
func (s *Service) Reschedule(ctx context.Context, clinicID, id, date, timeOfDay string) (*Appointment, bool, error) {
	ctx, span := tracer.Start(ctx, "appointments.reschedule")
	defer span.End()

	if strings.TrimSpace(date) == "" || strings.TrimSpace(timeOfDay) == "" {
		return nil, false, ErrMissingSlot
	}

	a, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, false, err
	}
	if a.Status == StatusCancelled || a.Status == StatusCompleted {
		return nil, false, ErrNotReschedulable
	}
	if a.Date == date && a.Time == timeOfDay {
		return a, false, nil
	}

	a.Date = date
	a.Time = timeOfDay
	payload := events.AppointmentPayload{
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      date,
		Time:      timeOfDay,
		Status:    a.Status,
	}
	if err := s.repo.Update(ctx, a, events.AppointmentRescheduled, payload); err != nil {
		return nil, false, err
	}
	s.metrics.ObserveTransition("rescheduled")
	return a, true, nil
}

// Cancel moves an appointment to cancelled. The reason is mandatory.
func (s *Service) Cancel(ctx context.Context, clinicID, id, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.cancel")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	a, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return a, nil
	}
	if a.Status == StatusCompleted {
		return nil, ErrNotReschedulable
	}

	a.Status = StatusCancelled
	a.CancellationReason = reason
	payload := events.AppointmentPayload{
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      a.Date,
		Time:      a.Time,
		Status:    StatusCancelled,
		Reason:    reason,
	}
	if err := s.repo.Update(ctx, a, events.AppointmentCancelled, payload); err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("cancelled")
	return a, nil
}

// List returns the agenda for a date range.
func (s *Service) List(ctx context.Context, clinicID, doctorID, from, to string) ([]Appointment, error) {
	return s.repo.ListRange(ctx, clinicID, doctorID, from, to)
}

func (s *Service) resolvePatient(ctx context.Context, clinicID string, p *ManualPayload) (string, error) {
	if strings.TrimSpace(p.PatientID) != "" {
		return p.PatientID, nil
	}
	created, err := s.patients.FindOrCreate(ctx, &patients.Patient{
		ClinicID: clinicID,
		Name:     p.QuickRegistration.Name,
		Phone:    p.QuickRegistration.Phone,
		Document: p.QuickRegistration.Document,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *Service) fromPayload(clinicID, patientID string, p *ManualPayload, editing bool) *Appointment {
	kind := p.Type
	if kind == "" {
		kind = TypeInPerson
	}
	duration := p.DurationMinutes
	if duration <= 0 {
		duration = defaultDurationMinutes
	}
	paymentType := p.PaymentType
	if paymentType == "" {
		paymentType = PaymentPrivate
	}
	return &Appointment{
		ClinicID:            clinicID,
		DoctorID:            p.DoctorID,
		PatientID:           patientID,
		Date:                p.Date,
		Time:                p.Time,
		DurationMinutes:     duration,
		Type:                kind,
		PaymentType:         paymentType,
		InsuranceID:         p.InsuranceID,
		InsuranceCardNumber: p.InsuranceCardNumber,
		IgnoreConstraints:   p.ignoreConstraints(editing),
		ConstraintNote:      p.ConstraintNote,
	}
}

func (s *Service) eventPayload(a *Appointment, p *ManualPayload) events.AppointmentPayload {
	return events.AppointmentPayload{
		DoctorID:    a.DoctorID,
		PatientID:   a.PatientID,
		Date:        a.Date,
		Time:        a.Time,
		Status:      a.Status,
		NotifySMS:   p.NotifySMS,
		NotifyWhats: p.NotifyWhatsApp,
		NotifyEmail: p.NotifyEmail,
	}
}
