package models

import (
	"strconv"
	"time"
)

// ThreatTag is a rule match annotation on a composed threat.
type ThreatTag struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
}

// ComposedThreat is the service output for one statement.
type ComposedThreat struct {
	RecordID     string       `json:"record_id"`
	NumericID    int          `json:"numeric_id,omitempty"`
	ComposedAt   time.Time    `json:"ts"`
	Combination  int          `json:"field_combination"`
	FilledFields []string     `json:"filled_fields,omitempty"`
	Input        *Statement   `json:"input"`
	Result       RenderResult `json:"result"`
	Tags         []ThreatTag  `json:"tags,omitempty"`
}

// Key returns the storage key of the threat: its numeric id when assigned,
// the record id otherwise.
func (t *ComposedThreat) Key() string {
	if t.NumericID > 0 {
		return strconv.Itoa(t.NumericID)
	}
	return t.RecordID
}
