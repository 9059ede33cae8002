package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clinigo/platform/pkg/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("clinigo.internal.triage")

// Validation errors.
var (
	ErrMissingComplaint = errors.New("triage: complaint is required")
	ErrMissingMessage   = errors.New("triage: message is required")
	ErrMissingSession   = errors.New("triage: session_id is required")
)

// jobEnvelope is what travels on the queue; the record holds the request.
type jobEnvelope struct {
	JobID string `json:"job_id"`
}

// Service accepts triage requests and parks them as pending jobs for the
// worker. Responses are fetched by polling the job.
type Service struct {
	jobs   JobRecorder
	queue  Queue
	logger *logging.Logger
}

// NewService creates the triage intake service.
func NewService(jobs JobRecorder, queue Queue, logger *logging.Logger) *Service {
	if jobs == nil {
		panic("triage: job recorder cannot be nil")
	}
	if queue == nil {
		panic("triage: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{jobs: jobs, queue: queue, logger: logger}
}

// Start opens a triage session and returns the pending job ID.
func (s *Service) Start(ctx context.Context, req *StartRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "triage.start")
	defer span.End()

	if strings.TrimSpace(req.Complaint) == "" {
		return "", ErrMissingComplaint
	}

	job := &JobRecord{
		JobID:        uuid.NewString(),
		SessionID:    uuid.NewString(),
		StartRequest: req,
	}
	return s.enqueue(ctx, job)
}

// Message continues an existing session and returns the pending job ID.
func (s *Service) Message(ctx context.Context, req *MessageRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "triage.message")
	defer span.End()

	if strings.TrimSpace(req.SessionID) == "" {
		return "", ErrMissingSession
	}
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrMissingMessage
	}

	job := &JobRecord{
		JobID:          uuid.NewString(),
		SessionID:      req.SessionID,
		MessageRequest: req,
	}
	return s.enqueue(ctx, job)
}

// Job returns the current state of a triage job.
func (s *Service) Job(ctx context.Context, jobID string) (*JobRecord, error) {
	return s.jobs.GetJob(ctx, jobID)
}

func (s *Service) enqueue(ctx context.Context, job *JobRecord) (string, error) {
	if err := s.jobs.PutPending(ctx, job); err != nil {
		return "", err
	}
	body, err := json.Marshal(jobEnvelope{JobID: job.JobID})
	if err != nil {
		return "", fmt.Errorf("triage: marshal job envelope: %w", err)
	}
	if err := s.queue.Send(ctx, string(body)); err != nil {
		return "", err
	}
	s.logger.Info("triage job enqueued", "job_id", job.JobID, "session_id", job.SessionID)
	return job.JobID, nil
}
