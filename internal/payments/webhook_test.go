package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

const testWebhookSecret = "whsec-test"

type recordingConfirmer struct {
	confirmed []string
}

func (r *recordingConfirmer) ConfirmByID(_ context.Context, _, appointmentID string) error {
	r.confirmed = append(r.confirmed, appointmentID)
	return nil
}

func paymentRow(id, status string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "clinic_id", "appointment_id", "amount_cents", "status",
		"provider_id", "created_at", "updated_at"}).
		AddRow(id, "clinic-1", "appt-1", int64(20000), status, "fake:appt-1", now, now)
}

func signedWebhookRequest(secret, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	req.Header.Set(SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestWebhook_SucceededConfirmsAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM payments WHERE provider_id = \$1`).
		WithArgs("fake:appt-1").
		WillReturnRows(paymentRow("pay-1", StatusPending))
	mock.ExpectExec(`UPDATE payments SET status = \$2`).
		WithArgs("pay-1", StatusSucceeded).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	confirmer := &recordingConfirmer{}
	h := NewWebhookHandler(NewRepositoryWithDB(mock), confirmer, testWebhookSecret, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(testWebhookSecret, `{"provider_id":"fake:appt-1","status":"succeeded"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if len(confirmer.confirmed) != 1 || confirmer.confirmed[0] != "appt-1" {
		t.Fatalf("expected appt-1 confirmed, got %v", confirmer.confirmed)
	}
}

func TestWebhook_ReplayDoesNotReconfirm(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM payments WHERE provider_id = \$1`).
		WithArgs("fake:appt-1").
		WillReturnRows(paymentRow("pay-1", StatusSucceeded))
	// Status unchanged: zero rows affected, so no confirmation call.
	mock.ExpectExec(`UPDATE payments SET status = \$2`).
		WithArgs("pay-1", StatusSucceeded).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	confirmer := &recordingConfirmer{}
	h := NewWebhookHandler(NewRepositoryWithDB(mock), confirmer, testWebhookSecret, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(testWebhookSecret, `{"provider_id":"fake:appt-1","status":"succeeded"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(confirmer.confirmed) != 0 {
		t.Fatalf("replay must not reconfirm, got %v", confirmer.confirmed)
	}
}

func TestWebhook_UnknownPaymentIsAcked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM payments WHERE provider_id = \$1`).
		WithArgs("fake:ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	h := NewWebhookHandler(NewRepositoryWithDB(mock), &recordingConfirmer{}, testWebhookSecret, nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(testWebhookSecret, `{"provider_id":"fake:ghost","status":"succeeded"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWebhook_RejectsForgedRequests(t *testing.T) {
	// Provider IDs are guessable ("fake:"+appointmentID and visible in the
	// checkout URL), so an unsigned or mis-signed body must never reach the
	// repository, let alone confirm the appointment.
	body := `{"provider_id":"fake:appt-1","status":"succeeded"}`
	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{"no signature", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
		}},
		{"wrong secret", func() *http.Request {
			return signedWebhookRequest("attacker-guess", body)
		}},
		{"signature for a different body", func() *http.Request {
			other := signedWebhookRequest(testWebhookSecret, `{"provider_id":"fake:other"}`)
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
			req.Header.Set(SignatureHeader, other.Header.Get(SignatureHeader))
			return req
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			confirmer := &recordingConfirmer{}
			// nil db: any repository access would panic the test.
			h := NewWebhookHandler(NewRepositoryWithDB(nil), confirmer, testWebhookSecret, nil)

			rec := httptest.NewRecorder()
			h.Handle(rec, tc.req())

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401, body: %s", rec.Code, rec.Body.String())
			}
			if len(confirmer.confirmed) != 0 {
				t.Fatalf("forged webhook must not confirm anything, got %v", confirmer.confirmed)
			}
		})
	}
}

func TestWebhook_UnsetSecretRejectsEverything(t *testing.T) {
	h := NewWebhookHandler(NewRepositoryWithDB(nil), &recordingConfirmer{}, "", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest("", `{"provider_id":"fake:appt-1","status":"succeeded"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestFakeProvider(t *testing.T) {
	p := NewFakeProvider("https://app.example.com/", nil)
	resp, err := p.CreateCheckout(context.Background(), CheckoutParams{AppointmentID: "appt-1", AmountCents: 20000})
	if err != nil {
		t.Fatalf("CreateCheckout failed: %v", err)
	}
	if resp.URL != "https://app.example.com/payments/fake/appt-1" {
		t.Errorf("URL = %q", resp.URL)
	}
	if resp.ProviderID != "fake:appt-1" {
		t.Errorf("ProviderID = %q", resp.ProviderID)
	}

	if _, err := NewFakeProvider("", nil).CreateCheckout(context.Background(), CheckoutParams{AppointmentID: "a"}); err == nil {
		t.Error("expected error without base URL")
	}
}
