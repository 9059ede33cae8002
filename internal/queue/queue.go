// Package queue implements the per-doctor daily waiting list with priority
// ordering and server-authoritative status transitions.
package queue

import (
	"errors"
	"time"
)

// Entry statuses. waiting → called → in_consultation, with completed and
// no_show terminal.
const (
	StatusWaiting        = "waiting"
	StatusCalled         = "called"
	StatusInConsultation = "in_consultation"
	StatusCompleted      = "completed"
	StatusNoShow         = "no_show"
)

// Priority classes, strongest first.
const (
	PriorityEmergency    = "emergency"
	PriorityElderly      = "elderly"
	PriorityPregnant     = "pregnant"
	PriorityDisabled     = "disabled"
	PriorityUrgentReturn = "urgent_return"
	PriorityNormal       = "normal"
)

// priorityRank orders classes; lower runs first. Unknown classes sort as
// normal.
var priorityRank = map[string]int{
	PriorityEmergency:    0,
	PriorityElderly:      1,
	PriorityPregnant:     2,
	PriorityDisabled:     3,
	PriorityUrgentReturn: 4,
	PriorityNormal:       5,
}

// Rank returns the sort rank of a priority class.
func Rank(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return priorityRank[PriorityNormal]
}

// Entry is one patient in a doctor's daily queue.
type Entry struct {
	ID            string     `json:"id"`
	ClinicID      string     `json:"clinic_id"`
	DoctorID      string     `json:"doctor_id"`
	AppointmentID string     `json:"appointment_id,omitempty"`
	PatientID     string     `json:"patient_id"`
	PatientName   string     `json:"patient_name"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	CheckedInAt   time.Time  `json:"checked_in_at"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`

	// Computed for the listing.
	Position    int `json:"position,omitempty"`
	WaitMinutes int `json:"wait_minutes"`
}

// Stats summarizes one doctor's queue for the header cards.
type Stats struct {
	Waiting        int     `json:"waiting"`
	AvgWaitMinutes float64 `json:"avg_wait_minutes"`
	CompletedToday int     `json:"completed_today"`
}

// Transition and lookup errors.
var (
	ErrNotFound      = errors.New("queue: entry not found")
	ErrDoctorBusy    = errors.New("queue: a patient is already called or in consultation")
	ErrEmptyQueue    = errors.New("queue: no patients waiting")
	ErrBadTransition = errors.New("queue: invalid status transition")
	ErrUnknownAction = errors.New("queue: unknown action")
)
