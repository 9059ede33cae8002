package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/clinigo/platform/pkg/logging"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20

// AppointmentConfirmer flips a paid appointment to confirmed.
type AppointmentConfirmer interface {
	ConfirmByID(ctx context.Context, clinicID, appointmentID string) error
}

// WebhookHandler receives gateway callbacks and confirms the linked
// appointment on success.
type WebhookHandler struct {
	repo      *Repository
	confirmer AppointmentConfirmer
	secret    string
	logger    *logging.Logger
}

func NewWebhookHandler(repo *Repository, confirmer AppointmentConfirmer, secret string, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{repo: repo, confirmer: confirmer, secret: secret, logger: logger}
}

type webhookEvent struct {
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
}

// Handle processes a gateway status callback. The endpoint is public, so
// every request must carry a valid body signature before anything is read
// from it.
// POST /webhooks/payments
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, `{"error": "failed to read body"}`, http.StatusBadRequest)
		return
	}
	if !verifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature rejected", "remote_addr", r.RemoteAddr)
		http.Error(w, `{"error": "invalid signature"}`, http.StatusUnauthorized)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if event.ProviderID == "" {
		http.Error(w, `{"error": "provider_id required"}`, http.StatusBadRequest)
		return
	}

	payment, err := h.repo.GetByProviderID(r.Context(), event.ProviderID)
	if errors.Is(err, ErrNotFound) {
		// Ack unknown references so the gateway stops retrying.
		h.logger.Warn("webhook for unknown payment", "provider_id", event.ProviderID)
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		h.logger.Error("webhook payment lookup failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	switch event.Status {
	case StatusSucceeded:
		changed, err := h.repo.MarkStatus(r.Context(), payment.ID, StatusSucceeded)
		if err != nil {
			h.logger.Error("failed to mark payment succeeded", "error", err, "payment_id", payment.ID)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			return
		}
		if changed {
			if err := h.confirmer.ConfirmByID(r.Context(), payment.ClinicID, payment.AppointmentID); err != nil {
				h.logger.Error("failed to confirm appointment after payment", "error", err,
					"appointment_id", payment.AppointmentID)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
				return
			}
			h.logger.Info("payment succeeded, appointment confirmed",
				"payment_id", payment.ID, "appointment_id", payment.AppointmentID)
		}
	case StatusFailed:
		if _, err := h.repo.MarkStatus(r.Context(), payment.ID, StatusFailed); err != nil {
			h.logger.Error("failed to mark payment failed", "error", err, "payment_id", payment.ID)
			http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			return
		}
	default:
		h.logger.Debug("ignoring webhook status", "status", event.Status, "payment_id", payment.ID)
	}

	w.WriteHeader(http.StatusOK)
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// gateway header. An unset secret rejects everything: the route must not
// run open just because configuration is missing.
func verifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header), []byte(expected))
}
