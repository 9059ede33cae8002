// Package appointments manages the scheduling lifecycle: manual creation,
// edits, reschedules, cancellation and the agenda listing. Appointments are
// never deleted, only moved between statuses.
package appointments

import (
	"errors"
	"strings"
	"time"
)

// Appointment statuses.
const (
	StatusAwaitingPayment = "awaiting_payment"
	StatusConfirmed       = "confirmed"
	StatusCancelled       = "cancelled"
	StatusCompleted       = "completed"
	StatusNoShow          = "no_show"
)

// Appointment types.
const (
	TypeInPerson     = "in_person"
	TypeTelemedicine = "telemedicine"
)

// Payment types.
const (
	PaymentPrivate   = "PRIVATE"
	PaymentInsurance = "HEALTH_INSURANCE"
)

// Appointment is one scheduled consultation.
type Appointment struct {
	ID                  string    `json:"id"`
	ClinicID            string    `json:"clinic_id"`
	DoctorID            string    `json:"doctor_id"`
	PatientID           string    `json:"patient_id"`
	Date                string    `json:"appointment_date"`
	Time                string    `json:"appointment_time"`
	DurationMinutes     int       `json:"duration_minutes"`
	Type                string    `json:"type"`
	Status              string    `json:"status"`
	PaymentType         string    `json:"payment_type"`
	InsuranceID         string    `json:"health_insurance_id,omitempty"`
	InsuranceCardNumber string    `json:"insurance_card_number,omitempty"`
	PriceCents          int64     `json:"price_cents"`
	PricePending        bool      `json:"price_pending,omitempty"`
	CancellationReason  string    `json:"cancellation_reason,omitempty"`
	IgnoreConstraints   bool      `json:"ignore_schedule_constraints,omitempty"`
	ConstraintNote      string    `json:"constraint_justification,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// QuickRegistration carries the minimal fields staff type when the patient
// is not in the system yet.
type QuickRegistration struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Document string `json:"document,omitempty"`
}

// ManualPayload is shared by manual creation and edits. Exactly one of
// PatientID and QuickRegistration identifies the patient.
type ManualPayload struct {
	PatientID         string             `json:"patient_id,omitempty"`
	QuickRegistration *QuickRegistration `json:"quick_registration,omitempty"`

	DoctorID        string `json:"doctor_id"`
	Date            string `json:"appointment_date"`
	Time            string `json:"appointment_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Type            string `json:"type"`

	PaymentType         string `json:"payment_type"`
	InsuranceID         string `json:"health_insurance_id,omitempty"`
	InsuranceCardNumber string `json:"insurance_card_number,omitempty"`

	// Nil means "use the mode default": false on create, true on edit.
	IgnoreConstraints *bool  `json:"ignore_schedule_constraints,omitempty"`
	ConstraintNote    string `json:"constraint_justification,omitempty"`

	NotifySMS      bool `json:"notify_sms"`
	NotifyWhatsApp bool `json:"notify_whatsapp"`
	NotifyEmail    bool `json:"notify_email"`
}

// Validation errors surfaced to handlers.
var (
	ErrPatientIdentity  = errors.New("appointments: exactly one of patient_id and quick_registration is required")
	ErrMissingSlot      = errors.New("appointments: appointment_date and appointment_time are required")
	ErrMissingDoctor    = errors.New("appointments: doctor_id is required")
	ErrBadType          = errors.New("appointments: type must be in_person or telemedicine")
	ErrReasonRequired   = errors.New("appointments: cancellation_reason is required")
	ErrNotReschedulable = errors.New("appointments: cancelled or completed appointments cannot be rescheduled")
	ErrSlotTaken        = errors.New("appointments: doctor already has an appointment at that slot")
	ErrNotFound         = errors.New("appointments: not found")
)

// ValidatePatientIdentity enforces the XOR between an existing patient
// reference and a quick registration.
func (p *ManualPayload) ValidatePatientIdentity() error {
	hasID := strings.TrimSpace(p.PatientID) != ""
	hasQuick := p.QuickRegistration != nil && strings.TrimSpace(p.QuickRegistration.Name) != ""
	if hasID == hasQuick {
		return ErrPatientIdentity
	}
	return nil
}

// Validate checks the payload for a given mode. edit relaxes nothing today
// beyond the constraint default, but keeps the call sites honest.
func (p *ManualPayload) Validate() error {
	if err := p.ValidatePatientIdentity(); err != nil {
		return err
	}
	if strings.TrimSpace(p.DoctorID) == "" {
		return ErrMissingDoctor
	}
	if strings.TrimSpace(p.Date) == "" || strings.TrimSpace(p.Time) == "" {
		return ErrMissingSlot
	}
	if p.Type != "" && p.Type != TypeInPerson && p.Type != TypeTelemedicine {
		return ErrBadType
	}
	return nil
}

// rescheduleOnly reports whether the payload carries nothing but a new
// slot, the shape clients send to move an appointment without editing it.
func (p *ManualPayload) rescheduleOnly() bool {
	return strings.TrimSpace(p.PatientID) == "" && p.QuickRegistration == nil &&
		strings.TrimSpace(p.DoctorID) == "" &&
		strings.TrimSpace(p.Date) != "" && strings.TrimSpace(p.Time) != ""
}

// ignoreConstraints resolves the tri-state flag against the mode default.
func (p *ManualPayload) ignoreConstraints(editing bool) bool {
	if p.IgnoreConstraints != nil {
		return *p.IgnoreConstraints
	}
	return editing
}
