package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/clinigo/platform/internal/plans"
	"github.com/clinigo/platform/internal/tenancy"
	"github.com/redis/go-redis/v9"
)

type stubPlans struct {
	plan plans.Plan
}

func (s *stubPlans) GetPlan(context.Context, string) (plans.Plan, error) {
	return s.plan, nil
}

func newTestHandler(t *testing.T, plan plans.Plan) (*Handler, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewHandler(store, &stubPlans{plan: plan}, nil), store
}

func staffRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(tenancy.WithClinicID(req.Context(), "clinic-1"))
}

func TestStoreDefaultsWhenUnset(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	settings, err := store.Get(context.Background(), "clinic-1", "payment_gateway")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if settings.Enabled {
		t.Error("unset integration must default to disabled")
	}
}

func TestUpdateAndMaskedRead(t *testing.T) {
	handler, _ := newTestHandler(t, plans.Professional)

	body, _ := json.Marshal(updateRequest{
		Enabled:     true,
		Credentials: map[string]string{"api_key": "sk-1234567890"},
	})
	rec := httptest.NewRecorder()
	handler.Update(rec, staffRequest(http.MethodPost, "/api/integrations/settings?integration_id=payment_gateway", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.Get(rec, staffRequest(http.MethodGet, "/api/integrations/settings?integration_id=payment_gateway", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	var resp struct {
		Settings Settings `json:"settings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	got := resp.Settings.Credentials["api_key"]
	if strings.Contains(got, "sk-123") || !strings.HasSuffix(got, "7890") {
		t.Errorf("credential not masked correctly: %q", got)
	}
}

func TestMaskedEchoKeepsStoredCredential(t *testing.T) {
	handler, store := newTestHandler(t, plans.Professional)

	first, _ := json.Marshal(updateRequest{Enabled: true, Credentials: map[string]string{"api_key": "sk-1234567890"}})
	rec := httptest.NewRecorder()
	handler.Update(rec, staffRequest(http.MethodPost, "/api/integrations/settings?integration_id=payment_gateway", first))
	if rec.Code != http.StatusOK {
		t.Fatalf("first update failed: %d", rec.Code)
	}

	// A client saving the form echoes the masked value back.
	second, _ := json.Marshal(updateRequest{Enabled: true, Credentials: map[string]string{"api_key": "********7890"}})
	rec = httptest.NewRecorder()
	handler.Update(rec, staffRequest(http.MethodPost, "/api/integrations/settings?integration_id=payment_gateway", second))
	if rec.Code != http.StatusOK {
		t.Fatalf("second update failed: %d", rec.Code)
	}

	settings, err := store.Get(context.Background(), "clinic-1", "payment_gateway")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if settings.Credentials["api_key"] != "sk-1234567890" {
		t.Errorf("stored credential overwritten by masked echo: %q", settings.Credentials["api_key"])
	}
}

func TestEnableAboveTierIsForbidden(t *testing.T) {
	handler, _ := newTestHandler(t, plans.Starter)

	body, _ := json.Marshal(updateRequest{Enabled: true})
	rec := httptest.NewRecorder()
	handler.Update(rec, staffRequest(http.MethodPost, "/api/integrations/settings?integration_id=messaging_api", body))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestUnknownIntegrationIs404(t *testing.T) {
	handler, _ := newTestHandler(t, plans.Network)

	rec := httptest.NewRecorder()
	handler.Get(rec, staffRequest(http.MethodGet, "/api/integrations/settings?integration_id=nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteRevertsToDefault(t *testing.T) {
	handler, store := newTestHandler(t, plans.Enterprise)

	body, _ := json.Marshal(updateRequest{Enabled: true})
	rec := httptest.NewRecorder()
	handler.Update(rec, staffRequest(http.MethodPost, "/api/integrations/settings?integration_id=analytics", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Delete(rec, staffRequest(http.MethodDelete, "/api/integrations/settings?integration_id=analytics", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	settings, err := store.Get(context.Background(), "clinic-1", "analytics")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if settings.Enabled {
		t.Error("deleted settings must revert to disabled default")
	}
}

func TestCatalogListing(t *testing.T) {
	handler, _ := newTestHandler(t, plans.Basic)

	rec := httptest.NewRecorder()
	handler.Get(rec, staffRequest(http.MethodGet, "/api/integrations/settings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Integrations []catalogEntry `json:"integrations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	available := map[string]bool{}
	for _, e := range resp.Integrations {
		available[e.ID] = e.Available
	}
	if !available["payment_gateway"] || !available["email_sender"] {
		t.Error("tiers at or below BASIC should be available")
	}
	if available["messaging_api"] || available["crm_export"] {
		t.Error("tiers above BASIC must not be available")
	}
}
