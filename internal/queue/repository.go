package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinigo/platform/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the pgx surface the repository needs.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists queue entries and their outbox events atomically.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("queue: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(d db) *Repository {
	return &Repository{db: d}
}

// priorityOrder sorts by priority class then arrival. Emergencies always
// run first; unknown classes fall to the back with normal.
const priorityOrder = `
	CASE priority
		WHEN 'emergency' THEN 0
		WHEN 'elderly' THEN 1
		WHEN 'pregnant' THEN 2
		WHEN 'disabled' THEN 3
		WHEN 'urgent_return' THEN 4
		ELSE 5
	END, checked_in_at`

// CheckIn adds a patient to the doctor's queue for today.
func (r *Repository) CheckIn(ctx context.Context, e *Entry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("queue: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e.ID = uuid.NewString()
	e.Status = StatusWaiting
	if e.Priority == "" {
		e.Priority = PriorityNormal
	}
	e.CheckedInAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (id, clinic_id, doctor_id, appointment_id, patient_id, patient_name,
			status, priority, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.ClinicID, e.DoctorID, e.AppointmentID, e.PatientID, e.PatientName,
		e.Status, e.Priority, e.CheckedInAt)
	if err != nil {
		return fmt.Errorf("queue: insert entry: %w", err)
	}

	payload := events.QueuePayload{QueueID: e.ID, DoctorID: e.DoctorID, Kind: "insert", Status: e.Status}
	if _, err := events.InsertTx(ctx, tx, e.ClinicID, events.QueueCheckedIn, payload); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("queue: commit: %w", err)
	}
	return nil
}

// ListForDoctor returns today's queue in call order with computed
// positions and wait times.
func (r *Repository) ListForDoctor(ctx context.Context, clinicID, doctorID string) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinic_id, doctor_id, appointment_id, patient_id, patient_name,
			status, priority, checked_in_at, called_at, started_at, finished_at
		FROM queue_entries
		WHERE clinic_id = $1 AND doctor_id = $2 AND checked_in_at::date = CURRENT_DATE
		ORDER BY `+priorityOrder, clinicID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("queue: list: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var out []Entry
	position := 0
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.DoctorID, &e.AppointmentID, &e.PatientID,
			&e.PatientName, &e.Status, &e.Priority, &e.CheckedInAt, &e.CalledAt, &e.StartedAt,
			&e.FinishedAt); err != nil {
			return nil, fmt.Errorf("queue: scan entry: %w", err)
		}
		if e.Status == StatusWaiting {
			position++
			e.Position = position
		}
		e.WaitMinutes = int(now.Sub(e.CheckedInAt).Minutes())
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue: iterate: %w", err)
	}
	return out, nil
}

// StatsForDoctor summarizes today's queue.
func (r *Repository) StatsForDoctor(ctx context.Context, clinicID, doctorID string) (*Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COALESCE(AVG(EXTRACT(EPOCH FROM (called_at - checked_in_at)) / 60) FILTER (WHERE called_at IS NOT NULL), 0),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM queue_entries
		WHERE clinic_id = $1 AND doctor_id = $2 AND checked_in_at::date = CURRENT_DATE
	`, clinicID, doctorID).Scan(&s.Waiting, &s.AvgWaitMinutes, &s.CompletedToday)
	if err != nil {
		return nil, fmt.Errorf("queue: stats: %w", err)
	}
	return &s, nil
}

// CallNext promotes the first waiting patient to called. It refuses while
// another patient is already called or in consultation.
func (r *Repository) CallNext(ctx context.Context, clinicID, doctorID string) (*Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var busy int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entries
		WHERE clinic_id = $1 AND doctor_id = $2 AND checked_in_at::date = CURRENT_DATE
			AND status IN ('called', 'in_consultation')
	`, clinicID, doctorID).Scan(&busy)
	if err != nil {
		return nil, fmt.Errorf("queue: busy check: %w", err)
	}
	if busy > 0 {
		return nil, ErrDoctorBusy
	}

	var id string
	err = tx.QueryRow(ctx, `
		SELECT id FROM queue_entries
		WHERE clinic_id = $1 AND doctor_id = $2 AND checked_in_at::date = CURRENT_DATE
			AND status = 'waiting'
		ORDER BY `+priorityOrder+`
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, clinicID, doctorID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("queue: pick next: %w", err)
	}

	now := time.Now().UTC()
	entry, err := r.transitionTx(ctx, tx, clinicID, id, []string{StatusWaiting}, StatusCalled, "called_at", now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("queue: commit: %w", err)
	}
	return entry, nil
}

// Transition moves one entry between statuses with the allowed-from guard.
func (r *Repository) Transition(ctx context.Context, clinicID, id string, from []string, to string) (*Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stampColumn string
	switch to {
	case StatusCalled:
		stampColumn = "called_at"
	case StatusInConsultation:
		stampColumn = "started_at"
	case StatusCompleted, StatusNoShow:
		stampColumn = "finished_at"
	}

	entry, err := r.transitionTx(ctx, tx, clinicID, id, from, to, stampColumn, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("queue: commit: %w", err)
	}
	return entry, nil
}

func (r *Repository) transitionTx(ctx context.Context, tx pgx.Tx, clinicID, id string,
	from []string, to, stampColumn string, now time.Time) (*Entry, error) {

	query := fmt.Sprintf(`
		UPDATE queue_entries SET status = $3, %s = $4
		WHERE clinic_id = $1 AND id = $2 AND status = ANY($5)
		RETURNING doctor_id
	`, stampColumn)

	var doctorID string
	err := tx.QueryRow(ctx, query, clinicID, id, to, now, from).Scan(&doctorID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing entry from a bad transition.
		var status string
		row := tx.QueryRow(ctx, `SELECT status FROM queue_entries WHERE clinic_id = $1 AND id = $2`, clinicID, id)
		if scanErr := row.Scan(&status); errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, ErrBadTransition
	}
	if err != nil {
		return nil, fmt.Errorf("queue: transition: %w", err)
	}

	payload := events.QueuePayload{QueueID: id, DoctorID: doctorID, Kind: "update", Status: to}
	if _, err := events.InsertTx(ctx, tx, clinicID, events.QueueUpdated, payload); err != nil {
		return nil, err
	}
	return &Entry{ID: id, ClinicID: clinicID, DoctorID: doctorID, Status: to}, nil
}
