package notify

import (
	"context"
	"encoding/json"

	"github.com/clinigo/platform/internal/doctors"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/pkg/logging"
)

// patientSource resolves patient contact details for a delivery.
type patientSource interface {
	GetByID(ctx context.Context, clinicID, id string) (*patients.Patient, error)
}

// doctorSource resolves the doctor named in the message.
type doctorSource interface {
	GetByID(ctx context.Context, id string) (*doctors.Doctor, error)
}

// clinicSource resolves the clinic display name.
type clinicSource interface {
	GetName(ctx context.Context, clinicID string) (string, error)
}

// Worker drains the delivery queue and sends messages over the channels the
// booking requested. Send failures are logged and the message is deleted
// anyway; a notification is best-effort and must never wedge the queue.
type Worker struct {
	queue    Queue
	email    EmailSender
	sms      SMSSender
	whatsapp WhatsAppSender
	patients patientSource
	doctors  doctorSource
	clinics  clinicSource
	logger   *logging.Logger
}

// NewWorker creates a delivery worker. Any sender may be nil; deliveries for
// that channel are then skipped.
func NewWorker(queue Queue, email EmailSender, sms SMSSender, whatsapp WhatsAppSender,
	patientRepo patientSource, doctorRepo doctorSource, clinicRepo clinicSource, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:    queue,
		email:    email,
		sms:      sms,
		whatsapp: whatsapp,
		patients: patientRepo,
		doctors:  doctorRepo,
		clinics:  clinicRepo,
		logger:   logger,
	}
}

// Run polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopping")
			return ctx.Err()
		default:
		}

		messages, err := w.queue.Receive(ctx, 10, 20)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("failed to receive deliveries", "error", err)
			continue
		}

		for _, msg := range messages {
			w.handle(ctx, msg)
			if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
				w.logger.Error("failed to delete delivery", "error", err, "message_id", msg.ID)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg QueueMessage) {
	var d Delivery
	if err := json.Unmarshal([]byte(msg.Body), &d); err != nil {
		w.logger.Error("dropping malformed delivery", "error", err, "message_id", msg.ID)
		return
	}

	patient, err := w.patients.GetByID(ctx, d.ClinicID, d.Payload.PatientID)
	if err != nil {
		w.logger.Error("delivery skipped, patient lookup failed", "error", err,
			"patient_id", d.Payload.PatientID)
		return
	}

	doctorName := ""
	if doctor, err := w.doctors.GetByID(ctx, d.Payload.DoctorID); err == nil {
		doctorName = doctor.Name
	}
	clinicName := "sua clínica"
	if name, err := w.clinics.GetName(ctx, d.ClinicID); err == nil && name != "" {
		clinicName = name
	}

	content := RenderAppointmentNotice(d.EventType, patient.Name, clinicName, doctorName, d.Payload)

	if d.Payload.NotifyEmail && w.email != nil && patient.Email != "" {
		if err := w.email.Send(ctx, EmailMessage{
			To:      patient.Email,
			ToName:  patient.Name,
			Subject: content.Subject,
			Body:    content.Body,
		}); err != nil {
			w.logger.Error("email delivery failed", "error", err, "appointment_id", d.Payload.AppointmentID)
		}
	}
	if d.Payload.NotifySMS && w.sms != nil && patient.Phone != "" {
		if err := w.sms.SendSMS(ctx, patient.Phone, content.Body); err != nil {
			w.logger.Error("sms delivery failed", "error", err, "appointment_id", d.Payload.AppointmentID)
		}
	}
	if d.Payload.NotifyWhats && w.whatsapp != nil && patient.Phone != "" {
		if err := w.whatsapp.SendWhatsApp(ctx, patient.Phone, content.Body); err != nil {
			w.logger.Error("whatsapp delivery failed", "error", err, "appointment_id", d.Payload.AppointmentID)
		}
	}
}
