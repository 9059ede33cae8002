package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinigo/platform/pkg/logging"
)

const systemPrompt = `Você é um assistente de triagem de uma clínica médica.
Faça perguntas curtas e objetivas para entender os sintomas do paciente.
NUNCA dê diagnóstico nem prescreva tratamento. Se houver sinais de risco de
vida (dor no peito, falta de ar grave, sinais de AVC, sangramento intenso),
conclua imediatamente com urgency "emergency" e oriente procurar um
pronto-socorro.

Responda SEMPRE com um único objeto JSON neste formato:
{"reply": "...", "done": false, "classification": null}
Quando tiver informação suficiente, finalize com:
{"reply": "...", "done": true, "classification": {"urgency": "emergency|urgent|routine", "specialty": "...", "summary": "..."}}`

// jobStore is the store surface the worker needs.
type jobStore interface {
	JobRecorder
	JobUpdater
}

// Worker drains the triage queue, runs the model and stores results.
type Worker struct {
	queue     Queue
	jobs      jobStore
	llm       LLMClient
	modelID   string
	maxTokens int32
	logger    *logging.Logger
}

// NewWorker creates a triage worker.
func NewWorker(queue Queue, jobs jobStore, llm LLMClient, modelID string, maxTokens int32, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("triage: queue cannot be nil")
	}
	if jobs == nil {
		panic("triage: job store cannot be nil")
	}
	if llm == nil {
		panic("triage: llm client cannot be nil")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:     queue,
		jobs:      jobs,
		llm:       llm,
		modelID:   modelID,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Run polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("triage worker started", "model", w.modelID)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("triage worker stopping")
			return ctx.Err()
		default:
		}

		messages, err := w.queue.Receive(ctx, 5, 20)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("failed to receive triage jobs", "error", err)
			continue
		}

		for _, msg := range messages {
			w.handle(ctx, msg)
			if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
				w.logger.Error("failed to delete triage job", "error", err, "message_id", msg.ID)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queueMessage) {
	var envelope jobEnvelope
	if err := json.Unmarshal([]byte(msg.Body), &envelope); err != nil {
		w.logger.Error("dropping malformed triage envelope", "error", err, "message_id", msg.ID)
		return
	}

	job, err := w.jobs.GetJob(ctx, envelope.JobID)
	if err != nil {
		w.logger.Error("triage job lookup failed", "error", err, "job_id", envelope.JobID)
		return
	}
	if job.Status != JobStatusPending {
		return
	}

	resp, err := w.process(ctx, job)
	if err != nil {
		w.logger.Error("triage job failed", "error", err, "job_id", job.JobID)
		if markErr := w.jobs.MarkFailed(ctx, job.JobID, err.Error()); markErr != nil {
			w.logger.Error("failed to mark triage job failed", "error", markErr, "job_id", job.JobID)
		}
		return
	}

	if err := w.jobs.MarkCompleted(ctx, job.JobID, resp, job.SessionID); err != nil {
		w.logger.Error("failed to mark triage job completed", "error", err, "job_id", job.JobID)
		return
	}
	w.logger.Info("triage job completed", "job_id", job.JobID, "done", resp.Done)
}

func (w *Worker) process(ctx context.Context, job *JobRecord) (*Response, error) {
	messages, err := buildMessages(job)
	if err != nil {
		return nil, err
	}

	llmResp, err := w.llm.Complete(ctx, LLMRequest{
		Model:     w.modelID,
		System:    []string{systemPrompt},
		Messages:  messages,
		MaxTokens: w.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("triage: model completion: %w", err)
	}

	out, err := ParseModelOutput(llmResp.Text)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		SessionID:      job.SessionID,
		Reply:          out.Reply,
		Done:           out.Done,
		Classification: out.Classification,
	}
	if out.Done && out.Classification != nil {
		resp.RecommendedPriority = out.Classification.RecommendedPriority()
	}
	return resp, nil
}

func buildMessages(job *JobRecord) ([]ChatMessage, error) {
	switch {
	case job.StartRequest != nil:
		intro := strings.TrimSpace(job.StartRequest.Complaint)
		if job.StartRequest.PatientAge > 0 {
			intro = fmt.Sprintf("Paciente, %d anos. Queixa: %s", job.StartRequest.PatientAge, intro)
		}
		return []ChatMessage{{Role: ChatRoleUser, Content: intro}}, nil

	case job.MessageRequest != nil:
		messages := make([]ChatMessage, 0, len(job.MessageRequest.History)+1)
		for _, m := range job.MessageRequest.History {
			if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
				continue
			}
			messages = append(messages, m)
		}
		messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: job.MessageRequest.Message})
		return messages, nil

	default:
		return nil, fmt.Errorf("triage: job %s carries no request", job.JobID)
	}
}
