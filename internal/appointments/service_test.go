package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinigo/platform/internal/patients"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

type stubResolver struct {
	created *patients.Patient
}

func (s *stubResolver) FindOrCreate(_ context.Context, p *patients.Patient) (*patients.Patient, error) {
	p.ID = "pat-new"
	s.created = p
	return p, nil
}

type stubQuoter struct {
	cents   int64
	pending bool
}

func (s stubQuoter) Quote(context.Context, string, string, string) (int64, bool, error) {
	return s.cents, s.pending, nil
}

// anyArgs builds n wildcard matchers; pgxmock requires the expected and
// actual argument counts to match even when the values are irrelevant.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var appointmentColumns = []string{"id", "clinic_id", "doctor_id", "patient_id", "appointment_date",
	"appointment_time", "duration_minutes", "type", "status", "payment_type", "health_insurance_id",
	"insurance_card_number", "price_cents", "price_pending", "cancellation_reason",
	"ignore_schedule_constraints", "constraint_justification", "created_at", "updated_at"}

func appointmentRow(id, status, date, timeOfDay string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(appointmentColumns).
		AddRow(id, "clinic-1", "doc-1", "pat-1", date, timeOfDay,
			30, TypeInPerson, status, PaymentPrivate, "", "",
			int64(20000), false, "", false, "", now, now)
}

func validPayload() *ManualPayload {
	return &ManualPayload{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Date:      "2026-09-01",
		Time:      "14:00",
	}
}

func TestValidatePatientIdentity(t *testing.T) {
	cases := []struct {
		name    string
		payload ManualPayload
		wantErr bool
	}{
		{"patient id only", ManualPayload{PatientID: "pat-1"}, false},
		{"quick registration only", ManualPayload{QuickRegistration: &QuickRegistration{Name: "Maria"}}, false},
		{"both", ManualPayload{PatientID: "pat-1", QuickRegistration: &QuickRegistration{Name: "Maria"}}, true},
		{"neither", ManualPayload{}, true},
		{"blank quick registration counts as absent", ManualPayload{QuickRegistration: &QuickRegistration{}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.ValidatePatientIdentity()
			if tc.wantErr && !errors.Is(err, ErrPatientIdentity) {
				t.Errorf("expected ErrPatientIdentity, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIgnoreConstraintsDefaults(t *testing.T) {
	p := &ManualPayload{}
	if p.ignoreConstraints(false) {
		t.Error("create default should be false")
	}
	if !p.ignoreConstraints(true) {
		t.Error("edit default should be true")
	}

	explicit := false
	p.IgnoreConstraints = &explicit
	if p.ignoreConstraints(true) {
		t.Error("explicit false must win over the edit default")
	}
}

func TestCreateManual_QuickRegistration(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO appointments`).WithArgs(anyArgs(19)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO outbox`).WithArgs(anyArgs(4)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	resolver := &stubResolver{}
	svc := NewService(NewRepositoryWithDB(mock), resolver, stubQuoter{cents: 20000}, nil, nil)

	payload := validPayload()
	payload.PatientID = ""
	payload.QuickRegistration = &QuickRegistration{Name: "Maria Silva", Phone: "+5511912345678"}

	a, err := svc.CreateManual(context.Background(), "clinic-1", payload)
	if err != nil {
		t.Fatalf("CreateManual failed: %v", err)
	}
	if a.PatientID != "pat-new" {
		t.Errorf("patient id = %q, want pat-new", a.PatientID)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("status = %q, want confirmed", a.Status)
	}
	if a.PriceCents != 20000 {
		t.Errorf("price = %d, want 20000", a.PriceCents)
	}
	if resolver.created == nil || resolver.created.Name != "Maria Silva" {
		t.Errorf("quick registration was not materialized: %+v", resolver.created)
	}
}

func TestCreateManual_SlotConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO appointments`).
		WithArgs(anyArgs(19)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_doctor_slot_key"})
	mock.ExpectRollback()

	svc := NewService(NewRepositoryWithDB(mock), &stubResolver{}, stubQuoter{}, nil, nil)
	_, err = svc.CreateManual(context.Background(), "clinic-1", validPayload())
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestReschedule_SameSlotIsNoOp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	// Only the load is expected: no UPDATE, no outbox insert.
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND id = \$2`).
		WithArgs("clinic-1", "appt-1").
		WillReturnRows(appointmentRow("appt-1", StatusConfirmed, "2026-09-01", "14:00"))

	svc := NewService(NewRepositoryWithDB(mock), &stubResolver{}, nil, nil, nil)
	a, changed, err := svc.Reschedule(context.Background(), "clinic-1", "appt-1", "2026-09-01", "14:00")
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if changed {
		t.Error("same-slot reschedule must be a no-op")
	}
	if a.Date != "2026-09-01" || a.Time != "14:00" {
		t.Errorf("unexpected slot: %s %s", a.Date, a.Time)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReschedule_MovesSlot(t *testing.T) {
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

	svc := NewService(NewRepositoryWithDB(mock), &stubResolver{}, nil, nil, nil)
	a, changed, err := svc.Reschedule(context.Background(), "clinic-1", "appt-1", "2026-09-02", "09:30")
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if !changed {
		t.Error("expected a real move to report changed")
	}
	if a.Date != "2026-09-02" || a.Time != "09:30" {
		t.Errorf("unexpected slot: %s %s", a.Date, a.Time)
	}
}

func TestReschedule_TerminalStatusRejected(t *testing.T) {
	for _, status := range []string{StatusCancelled, StatusCompleted} {
		t.Run(status, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock pool: %v", err)
			}
			defer mock.Close()

			mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND id = \$2`).
				WithArgs("clinic-1", "appt-1").
				WillReturnRows(appointmentRow("appt-1", status, "2026-09-01", "14:00"))

			svc := NewService(NewRepositoryWithDB(mock), &stubResolver{}, nil, nil, nil)
			_, _, err = svc.Reschedule(context.Background(), "clinic-1", "appt-1", "2026-09-02", "09:30")
			if !errors.Is(err, ErrNotReschedulable) {
				t.Fatalf("expected ErrNotReschedulable, got %v", err)
			}
		})
	}
}

func TestCancel_RequiresReason(t *testing.T) {
	svc := NewService(NewRepositoryWithDB(nil), &stubResolver{}, nil, nil, nil)
	if _, err := svc.Cancel(context.Background(), "clinic-1", "appt-1", "  "); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestCancel_SetsStatusAndReason(t *testing.T) {
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

	svc := NewService(NewRepositoryWithDB(mock), &stubResolver{}, nil, nil, nil)
	a, err := svc.Cancel(context.Background(), "clinic-1", "appt-1", "patient asked to cancel")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", a.Status)
	}
	if a.CancellationReason != "patient asked to cancel" {
		t.Errorf("reason = %q", a.CancellationReason)
	}
}
