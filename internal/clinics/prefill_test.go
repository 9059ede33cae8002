package clinics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScrapeClinicPrefill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contato" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Home | Clínica Vida</title></head>
			<body><p>Fale conosco: contato@clinicavida.com.br ou (11) 91234-5678</p>
			<script>ignored()</script></body></html>`))
	}))
	defer srv.Close()

	result, err := ScrapeClinicPrefill(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapeClinicPrefill failed: %v", err)
	}
	if result.Name != "Clínica Vida" {
		t.Errorf("Name = %q, want Clínica Vida", result.Name)
	}
	if result.Email != "contato@clinicavida.com.br" {
		t.Errorf("Email = %q", result.Email)
	}
	if result.Phone == "" {
		t.Error("expected phone to be extracted")
	}
	if result.WebsiteURL != srv.URL {
		t.Errorf("WebsiteURL = %q, want %q", result.WebsiteURL, srv.URL)
	}
}

func TestScrapeClinicPrefill_InvalidURL(t *testing.T) {
	if _, err := ScrapeClinicPrefill(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
