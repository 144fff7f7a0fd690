package threathttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"threatcomposer/pkg/models"
)

func TestWriteThreatsPostsBatch(t *testing.T) {
	var got []models.ComposedThreat
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t"}})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	batch := []*models.ComposedThreat{{RecordID: "a"}, {RecordID: "b"}}
	if err := w.WriteThreats(batch); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(got) != 2 || got[1].RecordID != "b" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if auth != "Bearer t" {
		t.Fatalf("expected auth header, got %q", auth)
	}
}

func TestWriteThreatsFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteThreats([]*models.ComposedThreat{{RecordID: "a"}}); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestNewWriterRequiresURL(t *testing.T) {
	if _, err := NewWriter(Config{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
