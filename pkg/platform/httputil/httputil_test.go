package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"id": 1})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json content type, got %q", ct)
	}

	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["id"] != 1 {
		t.Fatalf("expected id 1, got %d", body["id"])
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/entregas/orden/abc", nil)

	WriteError(w, r, http.StatusBadRequest, "invalid order id")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != http.StatusBadRequest {
		t.Fatalf("expected status field %d, got %d", http.StatusBadRequest, body.Status)
	}
	if body.Error != http.StatusText(http.StatusBadRequest) {
		t.Fatalf("expected error %q, got %q", http.StatusText(http.StatusBadRequest), body.Error)
	}
	if body.Message != "invalid order id" {
		t.Fatalf("expected message to round-trip, got %q", body.Message)
	}
	if body.Path != "/api/entregas/orden/abc" {
		t.Fatalf("expected request path, got %q", body.Path)
	}
	if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
		t.Fatalf("expected RFC3339 timestamp, got %q", body.Timestamp)
	}
}
