// Package events provides the transactional outbox that decouples state
// changes from notification and realtime delivery.
package events

// Event types inserted by the appointment and queue flows.
const (
	AppointmentCreated     = "appointment.created.v1"
	AppointmentUpdated     = "appointment.updated.v1"
	AppointmentRescheduled = "appointment.rescheduled.v1"
	AppointmentCancelled   = "appointment.cancelled.v1"
	AppointmentConfirmed   = "appointment.confirmed.v1"
	QueueCheckedIn         = "queue.checked_in.v1"
	QueueUpdated           = "queue.updated.v1"
)

// AppointmentPayload is the outbox payload for appointment events.
type AppointmentPayload struct {
	AppointmentID string `json:"appointment_id"`
	DoctorID      string `json:"doctor_id"`
	PatientID     string `json:"patient_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
	NotifySMS     bool   `json:"notify_sms,omitempty"`
	NotifyWhats   bool   `json:"notify_whatsapp,omitempty"`
	NotifyEmail   bool   `json:"notify_email,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// QueuePayload is the outbox payload for queue events. Kind distinguishes
// inserts from updates so clients can play the arrival sound.
type QueuePayload struct {
	QueueID  string `json:"queue_id"`
	DoctorID string `json:"doctor_id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
}
