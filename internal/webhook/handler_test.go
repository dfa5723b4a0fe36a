package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"smartjogger/internal/sensor"
)

type sink struct {
	mu        sync.Mutex
	positions []sensor.Position
	errs      []error
}

func (s *sink) callbacks() sensor.Callbacks {
	return sensor.Callbacks{
		OnPosition: func(p sensor.Position) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.positions = append(s.positions, p)
		},
		OnError: func(err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.errs = append(s.errs, err)
		},
	}
}

func (s *sink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions), len(s.errs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func post(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/positions", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerDeliversSignedFix(t *testing.T) {
	handler := &Handler{SigningSecret: "secret"}
	var s sink
	h, err := handler.Watch(context.Background(), sensor.Options{}, s.callbacks())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer h.Stop()

	payload := []byte(`{"latitude":52.0009,"longitude":4.0,"timestamp":1715003456000}`)
	rec := post(handler, payload, signPayload(payload, "secret"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	waitFor(t, func() bool { n, _ := s.counts(); return n == 1 })
	s.mu.Lock()
	defer s.mu.Unlock()
	got := s.positions[0]
	if got.Latitude != 52.0009 || got.Longitude != 4.0 {
		t.Fatalf("unexpected position %+v", got)
	}
	if !got.Timestamp.Equal(time.UnixMilli(1715003456000)) {
		t.Fatalf("unexpected timestamp %v", got.Timestamp)
	}
}

func TestHandlerDeliversLateFix(t *testing.T) {
	handler := &Handler{}
	var s sink
	h, err := handler.Watch(context.Background(), sensor.DefaultOptions, s.callbacks())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer h.Stop()

	taken := time.Now().Add(-1500 * time.Millisecond).UnixMilli()
	payload := []byte(fmt.Sprintf(`{"latitude":52,"longitude":4,"timestamp":%d}`, taken))
	rec := post(handler, payload, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	waitFor(t, func() bool { n, _ := s.counts(); return n == 1 })
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.positions[0].Timestamp.Equal(time.UnixMilli(taken)) {
		t.Fatalf("unexpected timestamp %v", s.positions[0].Timestamp)
	}
}

func TestHandlerDeliversError(t *testing.T) {
	handler := &Handler{}
	var s sink
	h, err := handler.Watch(context.Background(), sensor.Options{}, s.callbacks())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer h.Stop()

	rec := post(handler, []byte(`{"error":"User denied Geolocation"}`), "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	waitFor(t, func() bool { _, n := s.counts(); return n == 1 })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs[0].Error() != "User denied Geolocation" {
		t.Fatalf("unexpected error %v", s.errs[0])
	}
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	handler := &Handler{SigningSecret: "secret"}
	payload := []byte(`{"latitude":1,"longitude":2}`)
	rec := post(handler, payload, signPayload(payload, "other"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlerRejectsInvalidFix(t *testing.T) {
	handler := &Handler{}
	h, err := handler.Watch(context.Background(), sensor.Options{}, sensor.Callbacks{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer h.Stop()

	tests := []struct {
		name    string
		payload string
	}{
		{"json", `{`},
		{"missing longitude", `{"latitude":1}`},
		{"latitude range", `{"latitude":91,"longitude":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(handler, []byte(tt.payload), "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandlerNotWatching(t *testing.T) {
	handler := &Handler{}
	h, err := handler.Watch(context.Background(), sensor.Options{}, sensor.Callbacks{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	h.Stop()

	rec := post(handler, []byte(`{"latitude":1,"longitude":2}`), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	status := httptest.NewRecorder()
	handler.ServeHTTP(status, req)
	if status.Body.String() != "{\"watching\":false}\n" {
		t.Fatalf("unexpected status body %q", status.Body.String())
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	handler := &Handler{}
	req := httptest.NewRequest(http.MethodDelete, "/positions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
