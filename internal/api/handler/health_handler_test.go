package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHealthHandler_Liveness(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := NewHealthHandler().Liveness(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Liveness() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []DependencyCheck
		wantCode   int
		wantStatus string
	}{
		{"no optional stores", nil, http.StatusOK, "ok"},
		{"all healthy", []DependencyCheck{{"redis", ok}, {"mongodb", ok}}, http.StatusOK, "ok"},
		{"one down", []DependencyCheck{{"redis", down}, {"mongodb", ok}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			rec := httptest.NewRecorder()

			if err := NewReadinessHandler(tt.checks...).Readiness(e.NewContext(req, rec)); err != nil {
				t.Fatalf("Readiness() error = %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantStatus)
			}
			if len(resp.Dependencies) != len(tt.checks) {
				t.Errorf("dependencies = %v", resp.Dependencies)
			}
			for _, c := range tt.checks {
				if c.Ping(context.Background()) != nil && resp.Dependencies[c.Name].Error == "" {
					t.Errorf("%s: expected error detail", c.Name)
				}
			}
		})
	}
}
