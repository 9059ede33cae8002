package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinigo/platform/pkg/logging"
)

// RealtimePublisher pushes queue change signals to connected clients.
type RealtimePublisher interface {
	PublishQueueEvent(ctx context.Context, doctorID string, payload QueuePayload) error
}

// NotificationEnqueuer hands appointment notices to the notification queue.
type NotificationEnqueuer interface {
	EnqueueAppointmentNotice(ctx context.Context, clinicID, eventType string, payload AppointmentPayload) error
}

// Fanout routes delivered outbox entries to realtime and notification
// transports. Unknown event types are acknowledged and dropped so a bad
// row cannot wedge the outbox.
type Fanout struct {
	realtime RealtimePublisher
	notify   NotificationEnqueuer
	logger   *logging.Logger
}

func NewFanout(realtime RealtimePublisher, notify NotificationEnqueuer, logger *logging.Logger) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fanout{realtime: realtime, notify: notify, logger: logger}
}

func (f *Fanout) Handle(ctx context.Context, entry OutboxEntry) error {
	switch {
	case strings.HasPrefix(entry.Type, "queue."):
		if f.realtime == nil {
			return nil
		}
		var payload QueuePayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			f.logger.Error("dropping malformed queue event", "event_id", entry.ID, "error", err)
			return nil
		}
		if err := f.realtime.PublishQueueEvent(ctx, payload.DoctorID, payload); err != nil {
			return fmt.Errorf("events: publish queue event: %w", err)
		}
		return nil

	case strings.HasPrefix(entry.Type, "appointment."):
		if f.notify == nil {
			return nil
		}
		var payload AppointmentPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			f.logger.Error("dropping malformed appointment event", "event_id", entry.ID, "error", err)
			return nil
		}
		if !payload.NotifySMS && !payload.NotifyWhats && !payload.NotifyEmail {
			return nil
		}
		if err := f.notify.EnqueueAppointmentNotice(ctx, entry.ClinicID, entry.Type, payload); err != nil {
			return fmt.Errorf("events: enqueue notice: %w", err)
		}
		return nil

	default:
		f.logger.Warn("unknown outbox event type", "type", entry.Type, "event_id", entry.ID)
		return nil
	}
}
