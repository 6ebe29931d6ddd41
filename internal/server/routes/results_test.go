package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"insiderkg/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func resultRequest(dir, id string) (*middleware.AppContext, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return &middleware.AppContext{Context: c, App: &middleware.App{ResultsDir: dir}}, rec
}

func TestGetResultHandler(t *testing.T) {
	dir := t.TempDir()
	body := `{"nodes":[],"edges":[]}`
	if err := os.WriteFile(filepath.Join(dir, "company_acme.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tests := []struct {
		name string
		id   string
		code int
	}{
		{"local file served", "company_acme", http.StatusOK},
		{"unknown id", "company_ghost", http.StatusNotFound},
		{"run id shape accepted", "V1StGXR8_Z5jdHi6B-myT", http.StatusNotFound},
		{"separator rejected", "a/b", http.StatusBadRequest},
		{"empty id rejected", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc, rec := resultRequest(dir, tt.id)
			if err := GetResultHandler(cc); err != nil {
				t.Fatalf("handler: %v", err)
			}
			if rec.Code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, rec.Code)
			}
			if tt.code == http.StatusOK && rec.Body.String() != body {
				t.Fatalf("unexpected body %q", rec.Body.String())
			}
		})
	}
}
