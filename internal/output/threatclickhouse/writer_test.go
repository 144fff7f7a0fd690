package threatclickhouse

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threatcomposer/pkg/models"
)

func TestWriteThreatsInsertsJSONEachRow(t *testing.T) {
	var query, user string
	var rows []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		user = r.Header.Get("X-ClickHouse-User")
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var m map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			rows = append(rows, m)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL + "/", Database: "tc", Table: "threats", Username: "writer"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	batch := []*models.ComposedThreat{
		{
			RecordID:   "rec-1",
			NumericID:  4,
			ComposedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			Result:     models.RenderResult{Statement: "A insider can delete backups", Suggestions: []string{"x"}},
			Tags:       []models.ThreatTag{{ID: "r1", Technique: "T1490"}},
		},
		{RecordID: "rec-2"},
	}
	if err := w.WriteThreats(batch); err != nil {
		t.Fatalf("write: %v", err)
	}

	if query != "INSERT INTO `tc`.`threats` FORMAT JSONEachRow" {
		t.Fatalf("unexpected query: %q", query)
	}
	if user != "writer" {
		t.Fatalf("expected user header, got %q", user)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["threat_key"] != "4" || rows[0]["ts"] != "2026-05-01 12:00:00.000" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if rows[1]["threat_key"] != "rec-2" {
		t.Fatalf("expected record id key, got %v", rows[1]["threat_key"])
	}
	if tags, ok := rows[1]["tag_ids"].([]interface{}); !ok || len(tags) != 0 {
		t.Fatalf("expected empty tag array, got %v", rows[1]["tag_ids"])
	}
}

func TestWriteThreatsFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Code: 60. Table does not exist", http.StatusNotFound)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteThreats([]*models.ComposedThreat{{RecordID: "a"}}); err == nil {
		t.Fatalf("expected error for 404 response")
	}
}
