package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clinigo/platform/internal/events"
	"github.com/clinigo/platform/pkg/logging"
)

// Delivery is one queued notification job.
type Delivery struct {
	ClinicID  string                    `json:"clinic_id"`
	EventType string                    `json:"event_type"`
	Payload   events.AppointmentPayload `json:"payload"`
}

// Enqueuer pushes appointment notices onto the delivery queue. It satisfies
// events.NotificationEnqueuer so the outbox fanout can hand off to it.
type Enqueuer struct {
	queue  Queue
	logger *logging.Logger
}

// NewEnqueuer creates an enqueuer over the given queue.
func NewEnqueuer(queue Queue, logger *logging.Logger) *Enqueuer {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Enqueuer{queue: queue, logger: logger}
}

// EnqueueAppointmentNotice queues an appointment notice for delivery.
func (e *Enqueuer) EnqueueAppointmentNotice(ctx context.Context, clinicID, eventType string, payload events.AppointmentPayload) error {
	body, err := json.Marshal(Delivery{ClinicID: clinicID, EventType: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("notify: marshal delivery: %w", err)
	}
	if err := e.queue.Send(ctx, string(body)); err != nil {
		return err
	}
	e.logger.Debug("notification enqueued", "event_type", eventType, "appointment_id", payload.AppointmentID)
	return nil
}

var _ events.NotificationEnqueuer = (*Enqueuer)(nil)
