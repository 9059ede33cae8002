// Package patients provides patient records and the staff search used by
// the manual appointment flow.
package patients

import "time"

// Patient is a person registered at a clinic.
type Patient struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	Name      string    `json:"name"`
	Document  string    `json:"document,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	BirthDate string    `json:"birth_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a search hit. MatchType is "exact" for document matches and
// "partial" for name/phone prefix hits.
type Match struct {
	Patient
	MatchType string `json:"match_type"`
}
