package clinics

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func countRow(n int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"count"}).AddRow(n)
}

func TestGetStats_AllTime(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE clinic_id = \$1$`).
		WithArgs("clinic-1").WillReturnRows(countRow(42))
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND status = 'completed'$`).
		WithArgs("clinic-1").WillReturnRows(countRow(30))
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND status = 'cancelled'$`).
		WithArgs("clinic-1").WillReturnRows(countRow(8))
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND status = 'no_show'$`).
		WithArgs("clinic-1").WillReturnRows(countRow(4))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_cents\), 0\) FROM payments WHERE clinic_id = \$1 AND status = 'succeeded'$`).
		WithArgs("clinic-1").WillReturnRows(countRow(600000))

	repo := NewStatsRepositoryWithDB(mock)
	stats, err := repo.GetStats(context.Background(), "clinic-1", nil, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.AppointmentsTotal != 42 || stats.Completed != 30 || stats.Cancelled != 8 || stats.NoShows != 4 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.RevenueCents != 600000 {
		t.Errorf("revenue = %d, want 600000", stats.RevenueCents)
	}
	if stats.PeriodStart != "all-time" || stats.PeriodEnd != "now" {
		t.Errorf("unexpected period: %s..%s", stats.PeriodStart, stats.PeriodEnd)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetStats_PeriodFiltersOnExistingColumns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Appointment queries filter the text slot column with date-shaped
	// bounds; the revenue query filters payments.created_at with timestamps.
	apptFilter := ` AND appointment_date >= \$2 AND appointment_date < \$3$`
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1` + apptFilter).
		WithArgs("clinic-1", "2026-08-01", "2026-09-01").WillReturnRows(countRow(10))
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND status = 'completed'` + apptFilter).
		WithArgs("clinic-1", "2026-08-01", "2026-09-01").WillReturnRows(countRow(7))
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND status = 'cancelled'` + apptFilter).
		WithArgs("clinic-1", "2026-08-01", "2026-09-01").WillReturnRows(countRow(2))
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND status = 'no_show'` + apptFilter).
		WithArgs("clinic-1", "2026-08-01", "2026-09-01").WillReturnRows(countRow(1))
	mock.ExpectQuery(`FROM payments WHERE clinic_id = \$1 AND status = 'succeeded' AND created_at >= \$2 AND created_at < \$3$`).
		WithArgs("clinic-1", start, end).WillReturnRows(countRow(140000))

	repo := NewStatsRepositoryWithDB(mock)
	stats, err := repo.GetStats(context.Background(), "clinic-1", &start, &end)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.AppointmentsTotal != 10 || stats.RevenueCents != 140000 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.PeriodStart != start.Format(time.RFC3339) || stats.PeriodEnd != end.Format(time.RFC3339) {
		t.Errorf("unexpected period: %s..%s", stats.PeriodStart, stats.PeriodEnd)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
