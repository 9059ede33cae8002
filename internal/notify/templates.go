package notify

import (
	"fmt"
	"strings"

	"github.com/clinigo/platform/internal/events"
)

// MessageContent is a rendered notification, usable for any channel.
type MessageContent struct {
	Subject string
	Body    string
}

// RenderAppointmentNotice builds the patient-facing message for an
// appointment event. The body works for SMS/WhatsApp; email adds Subject.
func RenderAppointmentNotice(eventType, patientName, clinicName, doctorName string, p events.AppointmentPayload) MessageContent {
	name := strings.TrimSpace(patientName)
	if name == "" {
		name = "Olá"
	}
	slot := fmt.Sprintf("%s às %s", p.Date, p.Time)
	doctor := strings.TrimSpace(doctorName)
	if doctor == "" {
		doctor = "seu médico"
	}

	switch eventType {
	case events.AppointmentCreated:
		return MessageContent{
			Subject: "Consulta agendada - " + clinicName,
			Body: fmt.Sprintf("%s, sua consulta com %s foi agendada para %s. %s",
				name, doctor, slot, clinicName),
		}
	case events.AppointmentConfirmed:
		return MessageContent{
			Subject: "Pagamento confirmado - " + clinicName,
			Body: fmt.Sprintf("%s, recebemos seu pagamento. Sua consulta com %s em %s está confirmada. %s",
				name, doctor, slot, clinicName),
		}
	case events.AppointmentRescheduled:
		return MessageContent{
			Subject: "Consulta remarcada - " + clinicName,
			Body: fmt.Sprintf("%s, sua consulta com %s foi remarcada para %s. %s",
				name, doctor, slot, clinicName),
		}
	case events.AppointmentCancelled:
		body := fmt.Sprintf("%s, sua consulta com %s em %s foi cancelada.", name, doctor, slot)
		if p.Reason != "" {
			body += " Motivo: " + p.Reason + "."
		}
		return MessageContent{
			Subject: "Consulta cancelada - " + clinicName,
			Body:    body + " " + clinicName,
		}
	default:
		return MessageContent{
			Subject: "Atualização da sua consulta - " + clinicName,
			Body: fmt.Sprintf("%s, sua consulta com %s em %s foi atualizada. %s",
				name, doctor, slot, clinicName),
		}
	}
}

// RenderReminder builds the day-before reminder message.
func RenderReminder(patientName, clinicName, doctorName, date, timeOfDay string) MessageContent {
	name := strings.TrimSpace(patientName)
	if name == "" {
		name = "Olá"
	}
	doctor := strings.TrimSpace(doctorName)
	if doctor == "" {
		doctor = "seu médico"
	}
	return MessageContent{
		Subject: "Lembrete de consulta - " + clinicName,
		Body: fmt.Sprintf("%s, lembrete: você tem consulta com %s amanhã, %s às %s. %s",
			name, doctor, date, timeOfDay, clinicName),
	}
}
