package appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clinigo/platform/internal/tenancy"
	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func staffRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(tenancy.WithClinicID(req.Context(), "clinic-1"))
}

func TestCancelHandler_EmptyReasonIs422(t *testing.T) {
	h := NewHandler(NewService(NewRepositoryWithDB(nil), &stubResolver{}, nil, nil, nil), nil)

	r := chi.NewRouter()
	r.Post("/api/appointments/{appointmentID}/cancel", h.Cancel)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, staffRequest(http.MethodPost, "/api/appointments/appt-1/cancel", `{"cancellation_reason":""}`))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateManualHandler_IdentityViolationIs400(t *testing.T) {
	h := NewHandler(NewService(NewRepositoryWithDB(nil), &stubResolver{}, nil, nil, nil), nil)

	rec := httptest.NewRecorder()
	body := `{"patient_id":"pat-1","quick_registration":{"name":"Maria"},"doctor_id":"doc-1","appointment_date":"2026-09-01","appointment_time":"14:00"}`
	h.CreateManual(rec, staffRequest(http.MethodPost, "/api/appointments/manual", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateManualHandler_MissingSlotIs400(t *testing.T) {
	h := NewHandler(NewService(NewRepositoryWithDB(nil), &stubResolver{}, nil, nil, nil), nil)

	rec := httptest.NewRecorder()
	body := `{"patient_id":"pat-1","doctor_id":"doc-1"}`
	h.CreateManual(rec, staffRequest(http.MethodPost, "/api/appointments/manual", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateHandler_SlotOnlyBodyReschedules(t *testing.T) {
	// PATCH on the base route with only a new slot must move the
	// appointment instead of failing patient-identity validation.
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND id = \$2`).
		WithArgs("clinic-1", "appt-1").
		WillReturnRows(appointmentRow("appt-1", StatusConfirmed, "2026-09-01", "14:00"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE appointments`).WithArgs(anyArgs(17)...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO outbox`).WithArgs(anyArgs(4)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	h := NewHandler(NewService(NewRepositoryWithDB(mock), &stubResolver{}, nil, nil, nil), nil)
	r := chi.NewRouter()
	r.Patch("/api/appointments/{appointmentID}", h.UpdateManual)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, staffRequest(http.MethodPatch, "/api/appointments/appt-1",
		`{"appointment_date":"2026-09-02","appointment_time":"09:30"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var got Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Date != "2026-09-02" || got.Time != "09:30" {
		t.Errorf("slot = %s %s, want 2026-09-02 09:30", got.Date, got.Time)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListHandler_RequiresRange(t *testing.T) {
	h := NewHandler(NewService(NewRepositoryWithDB(nil), &stubResolver{}, nil, nil, nil), nil)

	rec := httptest.NewRecorder()
	h.List(rec, staffRequest(http.MethodGet, "/api/appointments?doctor_id=doc-1", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}
