package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/core/service"
)

// stubDelivery records what it was asked to send and reports every record
// as delivered unless undelivered or err is set.
type stubDelivery struct {
	mu          sync.Mutex
	single      []domain.Record
	bulk        []domain.Record
	undelivered bool
	err         error
}

func (s *stubDelivery) SendRecord(_ context.Context, rec domain.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.single = append(s.single, rec)
	if s.err != nil {
		return 0, s.err
	}
	if s.undelivered {
		return 0, nil
	}
	return 1, nil
}

func (s *stubDelivery) SendAll(_ context.Context, records []domain.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulk = append(s.bulk, records...)
	if s.err != nil {
		return 0, s.err
	}
	return len(records), nil
}

func newTestEcho(delivery *stubDelivery) (*echo.Echo, *RecordHandler) {
	e := echo.New()
	e.Validator = NewValidator()
	ingest := service.NewIngestService(domain.DefaultAgeLimits(), zerolog.Nop())
	h := NewRecordHandler(ingest, delivery, zerolog.Nop())
	return e, h
}

func postJSON(e *echo.Echo, h echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/send_record", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Message
}

func TestRecordHandler_Send(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		undelivered bool
		wantMsg     string
		wantSent    int
	}{
		{
			name:     "valid record",
			body:     `{"name":"John Doe","age":30,"cookie":"abcd","banner_id":10}`,
			wantMsg:  "Record abcd sent to ShowAds API.",
			wantSent: 1,
		},
		{
			name:     "empty name passes",
			body:     `{"name":"","age":30,"cookie":"empty","banner_id":0}`,
			wantMsg:  "Record empty sent to ShowAds API.",
			wantSent: 1,
		},
		{
			name:    "below default minimum",
			body:    `{"name":"Kid","age":15,"cookie":"kid","banner_id":10}`,
			wantMsg: "Record kid did not pass the validation, ignored.",
		},
		{
			name:    "explicit maximum",
			body:    `{"name":"Old","age":60,"cookie":"old","banner_id":10,"max_age":50}`,
			wantMsg: "Record old did not pass the validation, ignored.",
		},
		{
			name:     "explicit zero minimum",
			body:     `{"name":"Kid","age":15,"cookie":"kid","banner_id":10,"min_age":0}`,
			wantMsg:  "Record kid sent to ShowAds API.",
			wantSent: 1,
		},
		{
			name:    "invalid name",
			body:    `{"name":"J0hn","age":30,"cookie":"digits","banner_id":10}`,
			wantMsg: "Record digits did not pass the validation, ignored.",
		},
		{
			name:    "comma in cookie",
			body:    `{"name":"John","age":30,"cookie":"a,b","banner_id":1}`,
			wantMsg: "Record a,b did not pass the validation, ignored.",
		},
		{
			name:    "banner out of range",
			body:    `{"name":"John","age":30,"cookie":"banner","banner_id":100}`,
			wantMsg: "Record banner did not pass the validation, ignored.",
		},
		{
			name:        "stored for resend",
			body:        `{"name":"John","age":30,"cookie":"down","banner_id":1}`,
			undelivered: true,
			wantMsg:     "Record down could not be delivered, stored for resend.",
			wantSent:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &stubDelivery{undelivered: tt.undelivered}
			e, h := newTestEcho(delivery)

			rec, err := postJSON(e, h.Send, tt.body)
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if rec.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202", rec.Code)
			}
			if got := decodeMessage(t, rec); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
			if len(delivery.single) != tt.wantSent {
				t.Errorf("records sent = %d, want %d", len(delivery.single), tt.wantSent)
			}
		})
	}
}

func TestRecordHandler_SendBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"missing cookie", `{"name":"John","age":30,"banner_id":1}`},
		{"missing age", `{"name":"John","cookie":"c","banner_id":1}`},
		{"age not a number", `{"name":"John","age":"thirty","cookie":"c","banner_id":1}`},
		{"negative min_age", `{"name":"John","age":30,"cookie":"c","banner_id":1,"min_age":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &stubDelivery{}
			e, h := newTestEcho(delivery)

			_, err := postJSON(e, h.Send, tt.body)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 HTTPError, got %v", err)
			}
			if len(delivery.single) != 0 {
				t.Errorf("nothing should be sent")
			}
		})
	}
}

func TestRecordHandler_SendFallbackFailure(t *testing.T) {
	delivery := &stubDelivery{err: fmt.Errorf("disk: %w", domain.ErrFallbackWrite)}
	e, h := newTestEcho(delivery)

	_, err := postJSON(e, h.Send, `{"name":"John","age":30,"cookie":"c","banner_id":1}`)
	if !errors.Is(err, domain.ErrFallbackWrite) {
		t.Fatalf("expected ErrFallbackWrite, got %v", err)
	}
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func postBulk(t *testing.T, e *echo.Echo, h *RecordHandler, filename, content string, fields map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	body, contentType := multipartBody(t, filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, "/send_record/bulk", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	return rec, h.SendBulk(e.NewContext(req, rec))
}

const bulkCSV = "A,15,a,1\nB,20,b,2\nC,28,c,3\nD,35,d,4\n"

func TestRecordHandler_SendBulkAgeFilters(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   int
	}{
		{"defaults", nil, 3},
		{"min 20", map[string]string{"min_age": "20"}, 3},
		{"max 30", map[string]string{"max_age": "30"}, 2},
		{"min 20 max 30", map[string]string{"min_age": "20", "max_age": "30"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &stubDelivery{}
			e, h := newTestEcho(delivery)

			rec, err := postBulk(t, e, h, "records.CSV", bulkCSV, tt.fields)
			if err != nil {
				t.Fatalf("SendBulk() error = %v", err)
			}
			if rec.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202", rec.Code)
			}
			var resp bulkResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Sent != tt.want {
				t.Errorf("sent = %d, want %d", resp.Sent, tt.want)
			}
		})
	}
}

func TestRecordHandler_SendBulkRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
		wantCode int
		wantMsg  string
	}{
		{"no file", "", nil, http.StatusBadRequest, "CSV file required."},
		{"not csv", "records.txt", nil, http.StatusUnsupportedMediaType, "Unsupported file format. Only CSV files are accepted."},
		{"no extension", "records", nil, http.StatusUnsupportedMediaType, "Unsupported file format. Only CSV files are accepted."},
		{"bad min_age", "records.csv", map[string]string{"min_age": "x"}, http.StatusBadRequest, "min_age must be an integer"},
		{"bad max_age", "records.csv", map[string]string{"max_age": "1.5"}, http.StatusBadRequest, "max_age must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &stubDelivery{}
			e, h := newTestEcho(delivery)

			_, err := postBulk(t, e, h, tt.filename, bulkCSV, tt.fields)
			var he *echo.HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if he.Code != tt.wantCode || he.Message != tt.wantMsg {
				t.Errorf("got %d %v, want %d %q", he.Code, he.Message, tt.wantCode, tt.wantMsg)
			}
			if len(delivery.bulk) != 0 {
				t.Errorf("nothing should be sent")
			}
		})
	}
}
