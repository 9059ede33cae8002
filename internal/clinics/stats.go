package clinics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clinigo/platform/internal/tenancy"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stats represents per-clinic dashboard metrics.
type Stats struct {
	ClinicID          string `json:"clinic_id"`
	AppointmentsTotal int64  `json:"appointments_total"`
	Completed         int64  `json:"completed"`
	Cancelled         int64  `json:"cancelled"`
	NoShows           int64  `json:"no_shows"`
	RevenueCents      int64  `json:"revenue_cents"`
	PeriodStart       string `json:"period_start"`
	PeriodEnd         string `json:"period_end"`
}

// statsDB defines the database interface needed by StatsRepository.
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatsRepository queries clinic metrics from the database.
type StatsRepository struct {
	db statsDB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("clinics: pgx pool required for stats")
	}
	return &StatsRepository{db: pool}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats retrieves aggregated metrics for a clinic.
// Optional start/end times for filtering. If nil, returns all-time stats.
func (r *StatsRepository) GetStats(ctx context.Context, clinicID string, start, end *time.Time) (*Stats, error) {
	stats := &Stats{ClinicID: clinicID}

	// Appointments carry their slot as a YYYY-MM-DD text column, payments
	// a created_at timestamp, so the period filter differs per table.
	var apptFilter, payFilter string
	apptArgs := []any{clinicID}
	payArgs := []any{clinicID}
	if start != nil && end != nil {
		apptFilter = " AND appointment_date >= $2 AND appointment_date < $3"
		apptArgs = append(apptArgs, start.Format("2006-01-02"), end.Format("2006-01-02"))
		payFilter = " AND created_at >= $2 AND created_at < $3"
		payArgs = append(payArgs, *start, *end)
		stats.PeriodStart = start.Format(time.RFC3339)
		stats.PeriodEnd = end.Format(time.RFC3339)
	} else {
		stats.PeriodStart = "all-time"
		stats.PeriodEnd = "now"
	}

	totalQuery := `SELECT COUNT(*) FROM appointments WHERE clinic_id = $1` + apptFilter
	if err := r.db.QueryRow(ctx, totalQuery, apptArgs...).Scan(&stats.AppointmentsTotal); err != nil {
		return nil, fmt.Errorf("clinics stats: count appointments: %w", err)
	}

	completedQuery := `SELECT COUNT(*) FROM appointments WHERE clinic_id = $1 AND status = 'completed'` + apptFilter
	if err := r.db.QueryRow(ctx, completedQuery, apptArgs...).Scan(&stats.Completed); err != nil {
		return nil, fmt.Errorf("clinics stats: count completed: %w", err)
	}

	cancelledQuery := `SELECT COUNT(*) FROM appointments WHERE clinic_id = $1 AND status = 'cancelled'` + apptFilter
	if err := r.db.QueryRow(ctx, cancelledQuery, apptArgs...).Scan(&stats.Cancelled); err != nil {
		return nil, fmt.Errorf("clinics stats: count cancelled: %w", err)
	}

	noShowQuery := `SELECT COUNT(*) FROM appointments WHERE clinic_id = $1 AND status = 'no_show'` + apptFilter
	if err := r.db.QueryRow(ctx, noShowQuery, apptArgs...).Scan(&stats.NoShows); err != nil {
		return nil, fmt.Errorf("clinics stats: count no-shows: %w", err)
	}

	// Revenue is money actually collected, not prices on completed
	// appointments: insurance rows keep a pending price and unpaid visits
	// must not count.
	revenueQuery := `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE clinic_id = $1 AND status = 'succeeded'` + payFilter
	if err := r.db.QueryRow(ctx, revenueQuery, payArgs...).Scan(&stats.RevenueCents); err != nil {
		return nil, fmt.Errorf("clinics stats: sum revenue: %w", err)
	}

	return stats, nil
}

// StatsHandler provides HTTP endpoints for clinic statistics.
type StatsHandler struct {
	repo   *StatsRepository
	logger *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(repo *StatsRepository, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{repo: repo, logger: logger}
}

// GetStats returns aggregated metrics for the authenticated clinic.
// GET /api/admin/stats
// Query params:
//   - start: RFC3339 timestamp for period start (optional)
//   - end: RFC3339 timestamp for period end (optional)
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic context required")
		return
	}

	var start, end *time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start time, use RFC3339 format")
			return
		}
		start = &t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end time, use RFC3339 format")
			return
		}
		end = &t
	}
	if (start == nil) != (end == nil) {
		writeError(w, http.StatusBadRequest, "both start and end must be provided, or neither")
		return
	}

	stats, err := h.repo.GetStats(r.Context(), clinicID, start, end)
	if err != nil {
		h.logger.Error("failed to get clinic stats", "clinic_id", clinicID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode clinic stats", "clinic_id", clinicID, "error", err)
	}
}
