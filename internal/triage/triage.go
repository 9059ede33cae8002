// Package triage implements the guided symptom intake chat. Patient messages
// are processed asynchronously: the API enqueues a job, a worker runs the
// model and stores the result, and clients poll the job status.
package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clinigo/platform/internal/queue"
)

// Urgency levels a triage session can conclude with.
const (
	UrgencyEmergency = "emergency"
	UrgencyUrgent    = "urgent"
	UrgencyRoutine   = "routine"
)

// Classification is the structured outcome of a triage conversation.
type Classification struct {
	Urgency   string `json:"urgency"`
	Specialty string `json:"specialty,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// Valid reports whether the urgency value is one the system understands.
func (c *Classification) Valid() bool {
	switch c.Urgency {
	case UrgencyEmergency, UrgencyUrgent, UrgencyRoutine:
		return true
	}
	return false
}

// RecommendedPriority maps the urgency onto a check-in queue priority class.
func (c *Classification) RecommendedPriority() string {
	switch c.Urgency {
	case UrgencyEmergency:
		return queue.PriorityEmergency
	case UrgencyUrgent:
		return queue.PriorityUrgentReturn
	default:
		return queue.PriorityNormal
	}
}

// ChatMessage is one turn of the intake conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// StartRequest opens a triage session.
type StartRequest struct {
	ClinicID    string `json:"clinic_id"`
	PatientName string `json:"patient_name,omitempty"`
	PatientAge  int    `json:"patient_age,omitempty"`
	Complaint   string `json:"complaint"`
}

// MessageRequest continues an existing session.
type MessageRequest struct {
	ClinicID  string        `json:"clinic_id"`
	SessionID string        `json:"session_id"`
	History   []ChatMessage `json:"history,omitempty"`
	Message   string        `json:"message"`
}

// Response is what the worker stores when a job completes.
type Response struct {
	SessionID           string          `json:"session_id"`
	Reply               string          `json:"reply"`
	Done                bool            `json:"done"`
	Classification      *Classification `json:"classification,omitempty"`
	RecommendedPriority string          `json:"recommended_priority,omitempty"`
}

var ErrNoClassification = errors.New("triage: model output contained no classification")

// modelOutput is the JSON shape the model is instructed to emit.
type modelOutput struct {
	Reply          string          `json:"reply"`
	Done           bool            `json:"done"`
	Classification *Classification `json:"classification"`
}

// ParseModelOutput extracts the structured response from raw model text.
// Models wrap JSON in prose or code fences often enough that the parser
// scans for the outermost object instead of trusting the whole body.
func ParseModelOutput(raw string) (*modelOutput, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("triage: empty model output")
	}

	// Strip a markdown fence if present.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		// No JSON at all. Treat the text as a plain conversational reply.
		return &modelOutput{Reply: strings.TrimSpace(raw)}, nil
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("triage: parse model output: %w", err)
	}
	if out.Done {
		if out.Classification == nil {
			return nil, ErrNoClassification
		}
		if !out.Classification.Valid() {
			return nil, fmt.Errorf("triage: unknown urgency %q", out.Classification.Urgency)
		}
	}
	return &out, nil
}
