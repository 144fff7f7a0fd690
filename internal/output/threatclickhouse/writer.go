package threatclickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threatcomposer/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// row is the flat column layout of one composed threat.
type row struct {
	RecordID     string   `json:"record_id"`
	NumericID    int      `json:"numeric_id"`
	Key          string   `json:"threat_key"`
	TS           string   `json:"ts"`
	Combination  int      `json:"field_combination"`
	FilledFields []string `json:"filled_fields"`
	Statement    string   `json:"statement"`
	Suggestions  []string `json:"suggestions"`
	TagIDs       []string `json:"tag_ids"`
	Techniques   []string `json:"techniques"`
}

// Writer inserts composed threats into ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "composed_threats"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	endpoint := strings.TrimRight(cfg.URL, "/") + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// WriteThreats inserts a batch of composed threats.
func (w *Writer) WriteThreats(threats []*models.ComposedThreat) error {
	if len(threats) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, th := range threats {
		if err := enc.Encode(toRow(th)); err != nil {
			return fmt.Errorf("failed to marshal composed threat: %w", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases idle connections.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func toRow(th *models.ComposedThreat) row {
	r := row{
		RecordID:     th.RecordID,
		NumericID:    th.NumericID,
		Key:          th.Key(),
		TS:           th.ComposedAt.UTC().Format("2006-01-02 15:04:05.000"),
		Combination:  th.Combination,
		FilledFields: nonNil(th.FilledFields),
		Statement:    th.Result.Statement,
		Suggestions:  nonNil(th.Result.Suggestions),
		TagIDs:       []string{},
		Techniques:   []string{},
	}
	for _, tag := range th.Tags {
		r.TagIDs = append(r.TagIDs, tag.ID)
		if tag.Technique != "" {
			r.Techniques = append(r.Techniques, tag.Technique)
		}
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
