package patients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/clinigo/platform/internal/tenancy"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
)

func TestSearch_TermTooShort(t *testing.T) {
	s := NewSearcher(NewRepositoryWithDB(nil), nil, 0)

	for _, term := range []string{"", " ", "a", " a "} {
		if _, err := s.Search(context.Background(), "clinic-1", term); !errors.Is(err, ErrTermTooShort) {
			t.Errorf("term %q: expected ErrTermTooShort, got %v", term, err)
		}
	}
}

func TestSearch_CachesResults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "clinic_id", "name", "document", "phone", "email", "created_at"}).
		AddRow("pat-1", "clinic-1", "Maria Silva", "12345678901", "+5511912345678", "maria@example.com", now)
	// One database query serves both calls.
	mock.ExpectQuery(`name ILIKE`).
		WithArgs("clinic-1", "maria").
		WillReturnRows(rows)

	s := NewSearcher(NewRepositoryWithDB(mock), client, 30*time.Second)

	first, err := s.Search(context.Background(), "clinic-1", "maria")
	if err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	second, err := s.Search(context.Background(), "clinic-1", "maria")
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 match from both calls, got %d and %d", len(first), len(second))
	}
	if first[0].MatchType != "partial" {
		t.Errorf("match type = %q, want partial", first[0].MatchType)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSearch_DocumentExactRanksFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`document = \$2`).
		WithArgs("clinic-1", "12345678901").
		WillReturnRows(pgxmock.NewRows([]string{"id", "clinic_id", "name", "document", "phone", "email", "created_at"}).
			AddRow("pat-1", "clinic-1", "Maria Silva", "12345678901", "", "", now))
	mock.ExpectQuery(`name ILIKE`).
		WithArgs("clinic-1", "123.456.789-01").
		WillReturnRows(pgxmock.NewRows([]string{"id", "clinic_id", "name", "document", "phone", "email", "created_at"}))

	repo := NewRepositoryWithDB(mock)
	matches, err := repo.Search(context.Background(), "clinic-1", "123.456.789-01")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].MatchType != "exact" {
		t.Errorf("match type = %q, want exact", matches[0].MatchType)
	}
}

func TestSearchHandler_ShortTermIs400(t *testing.T) {
	h := NewHandler(nil, NewSearcher(NewRepositoryWithDB(nil), nil, 0), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/patients/search?q=a", nil)
	req = req.WithContext(tenancy.WithClinicID(req.Context(), "clinic-1"))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}
