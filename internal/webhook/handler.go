// Package webhook accepts position fixes pushed over HTTP by a phone app and
// serves them as a position source.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"smartjogger/internal/sensor"
)

// Fix is the pushed payload. Timestamp is in Unix milliseconds; zero leaves
// the fix unstamped. A non-empty Error reports a sensing failure instead.
type Fix struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
	Error     string   `json:"error"`
}

type watch struct {
	ctx   context.Context
	fixes chan sensor.Position
	errs  chan error
}

// Handler is both the push endpoint and the sensor.Source fed by it. Pushes
// are rejected while nobody is watching.
type Handler struct {
	SigningSecret string

	mu     sync.Mutex
	active *watch
}

func (h *Handler) Watch(ctx context.Context, opts sensor.Options, cb sensor.Callbacks) (sensor.Handle, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &watch{
		ctx:   ctx,
		fixes: make(chan sensor.Position, 32),
		errs:  make(chan error, 8),
	}

	h.mu.Lock()
	h.active = w
	h.mu.Unlock()

	go sensor.Relay(ctx, opts, w.fixes, w.errs, cb)

	return sensor.StopFunc(func() {
		cancel()
		h.mu.Lock()
		if h.active == w {
			h.active = nil
		}
		h.mu.Unlock()
	}), nil
}

func (h *Handler) current() *watch {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"watching": h.current() != nil})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if h.SigningSecret != "" {
		if !validSignature(payload, r.Header.Get("X-Signature"), h.SigningSecret) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var fix Fix
	if err := json.Unmarshal(payload, &fix); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var pos sensor.Position
	if fix.Error == "" {
		if fix.Latitude == nil || fix.Longitude == nil {
			http.Error(w, "missing required fields", http.StatusBadRequest)
			return
		}
		pos = sensor.Position{Latitude: *fix.Latitude, Longitude: *fix.Longitude}
		if err := pos.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if fix.Timestamp > 0 {
			pos.Timestamp = time.UnixMilli(fix.Timestamp)
		}
	}

	active := h.current()
	if active == nil {
		http.Error(w, "not watching", http.StatusServiceUnavailable)
		return
	}

	if fix.Error != "" {
		slog.Info("pushed sensing error", "error", fix.Error)
		if !offer(active.ctx, active.errs, errors.New(fix.Error)) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if !offer(active.ctx, active.fixes, pos) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// offer queues v without blocking.
func offer[T any](ctx context.Context, ch chan T, v T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

func validSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)
	received, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, received)
}
