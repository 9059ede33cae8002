package queue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clinigo/platform/internal/tenancy"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// anyArgs builds n wildcard matchers; pgxmock requires the expected and
// actual argument counts to match even when the values are irrelevant.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestRank(t *testing.T) {
	order := []string{PriorityEmergency, PriorityElderly, PriorityPregnant,
		PriorityDisabled, PriorityUrgentReturn, PriorityNormal}
	for i := 1; i < len(order); i++ {
		if Rank(order[i-1]) >= Rank(order[i]) {
			t.Errorf("Rank(%s) should be below Rank(%s)", order[i-1], order[i])
		}
	}
	if Rank("made_up") != Rank(PriorityNormal) {
		t.Error("unknown priority should rank as normal")
	}
}

func TestCallNext_RejectedWhileBusy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`status IN \('called', 'in_consultation'\)`).
		WithArgs("clinic-1", "doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	svc := NewService(NewRepositoryWithDB(mock), nil, nil)
	_, err = svc.Do(context.Background(), "clinic-1", ActionCallNext, "", "doc-1")
	if !errors.Is(err, ErrDoctorBusy) {
		t.Fatalf("expected ErrDoctorBusy, got %v", err)
	}
}

func TestCallNext_PromotesFirstWaiting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`status IN \('called', 'in_consultation'\)`).
		WithArgs("clinic-1", "doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs("clinic-1", "doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("q-1"))
	mock.ExpectQuery(`UPDATE queue_entries SET status = \$3, called_at = \$4`).
		WithArgs(anyArgs(5)...).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id"}).AddRow("doc-1"))
	mock.ExpectExec(`INSERT INTO outbox`).WithArgs(anyArgs(4)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	svc := NewService(NewRepositoryWithDB(mock), nil, nil)
	entry, err := svc.Do(context.Background(), "clinic-1", ActionCallNext, "", "doc-1")
	if err != nil {
		t.Fatalf("call_next failed: %v", err)
	}
	if entry.ID != "q-1" || entry.Status != StatusCalled {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestCallNext_EmptyQueue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`status IN \('called', 'in_consultation'\)`).
		WithArgs("clinic-1", "doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs("clinic-1", "doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	svc := NewService(NewRepositoryWithDB(mock), nil, nil)
	_, err = svc.Do(context.Background(), "clinic-1", ActionCallNext, "", "doc-1")
	if !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestTransition_GuardsStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	// start_consultation on a waiting entry: the update matches nothing,
	// the status lookup finds the row, so it is a bad transition.
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE queue_entries SET status = \$3, started_at = \$4`).
		WithArgs(anyArgs(5)...).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id"}))
	mock.ExpectQuery(`SELECT status FROM queue_entries`).
		WithArgs("clinic-1", "q-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusWaiting))
	mock.ExpectRollback()

	svc := NewService(NewRepositoryWithDB(mock), nil, nil)
	_, err = svc.Do(context.Background(), "clinic-1", ActionStartConsultation, "q-1", "")
	if !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
}

func TestDo_UnknownAction(t *testing.T) {
	svc := NewService(NewRepositoryWithDB(nil), nil, nil)
	if _, err := svc.Do(context.Background(), "clinic-1", "teleport", "q-1", ""); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestActHandler_BusyIs409(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`status IN \('called', 'in_consultation'\)`).
		WithArgs("clinic-1", "doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	h := NewHandler(NewService(NewRepositoryWithDB(mock), nil, nil), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/checkin/queue",
		strings.NewReader(`{"action":"call_next","doctor_id":"doc-1"}`))
	req = req.WithContext(tenancy.WithClinicID(req.Context(), "clinic-1"))
	rec := httptest.NewRecorder()
	h.Act(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body: %s", rec.Code, rec.Body.String())
	}
}
