package queue

import (
	"context"
	"strings"

	"github.com/clinigo/platform/internal/observability/metrics"
	"github.com/clinigo/platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinigo.internal.queue")

// Queue actions accepted by the POST endpoint.
const (
	ActionCallNext          = "call_next"
	ActionStartConsultation = "start_consultation"
	ActionEndConsultation   = "end_consultation"
	ActionNoShow            = "no_show"
)

// Service applies queue actions with the transition rules.
type Service struct {
	repo    *Repository
	metrics *metrics.QueueMetrics
	logger  *logging.Logger
}

// NewService creates the queue service. metrics may be nil.
func NewService(repo *Repository, m *metrics.QueueMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, metrics: m, logger: logger}
}

// Do executes one queue action. call_next needs doctorID; the others need
// queueID.
func (s *Service) Do(ctx context.Context, clinicID, action, queueID, doctorID string) (*Entry, error) {
	ctx, span := tracer.Start(ctx, "queue.action")
	span.SetAttributes(attribute.String("clinigo.queue_action", action))
	defer span.End()

	var (
		entry *Entry
		err   error
	)
	switch strings.TrimSpace(action) {
	case ActionCallNext:
		entry, err = s.repo.CallNext(ctx, clinicID, doctorID)
	case ActionStartConsultation:
		entry, err = s.repo.Transition(ctx, clinicID, queueID, []string{StatusCalled}, StatusInConsultation)
	case ActionEndConsultation:
		entry, err = s.repo.Transition(ctx, clinicID, queueID, []string{StatusInConsultation}, StatusCompleted)
	case ActionNoShow:
		entry, err = s.repo.Transition(ctx, clinicID, queueID, []string{StatusWaiting, StatusCalled}, StatusNoShow)
	default:
		s.metrics.ObserveAction(action, "unknown")
		return nil, ErrUnknownAction
	}

	if err != nil {
		s.metrics.ObserveAction(action, "error")
		return nil, err
	}
	s.metrics.ObserveAction(action, "ok")
	s.logger.Info("queue action applied", "action", action, "queue_id", entry.ID, "doctor_id", entry.DoctorID, "status", entry.Status)
	return entry, nil
}

// Snapshot returns today's queue plus stats for one doctor.
func (s *Service) Snapshot(ctx context.Context, clinicID, doctorID string) ([]Entry, *Stats, error) {
	entries, err := s.repo.ListForDoctor(ctx, clinicID, doctorID)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.repo.StatsForDoctor(ctx, clinicID, doctorID)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.SetWaiting(doctorID, float64(stats.Waiting))
	return entries, stats, nil
}

// CheckIn adds a patient to the queue, used by the QR scan flow.
func (s *Service) CheckIn(ctx context.Context, e *Entry) error {
	return s.repo.CheckIn(ctx, e)
}
