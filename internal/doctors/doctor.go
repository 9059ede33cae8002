// Package doctors provides doctor profiles and their accepted insurance plans.
package doctors

import "time"

// Doctor is a practitioner attached to a clinic.
type Doctor struct {
	ID                string    `json:"id"`
	ClinicID          string    `json:"clinic_id"`
	Name              string    `json:"name"`
	Specialty         string    `json:"specialty"`
	LicenseNumber     string    `json:"license_number,omitempty"`
	ConsultationPrice int64     `json:"consultation_price"`
	PhotoURL          string    `json:"photo_url,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// InsurancePlan is a health insurance plan a doctor accepts, with the
// price negotiated for that doctor.
type InsurancePlan struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ConsultationPrice int64  `json:"consultation_price"`
	Status            string `json:"status"`
}

// Insurance plan statuses.
const (
	InsuranceActive   = "ACTIVE"
	InsuranceInactive = "INACTIVE"
)
