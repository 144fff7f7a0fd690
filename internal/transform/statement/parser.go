package statement

import (
	"encoding/json"
	"fmt"
	"strings"

	"threatcomposer/pkg/models"
)

// Parse decodes a statement payload. It accepts the statement object itself
// or an envelope {"statement": {...}} / {"threat": {...}}. impactedGoal and
// impactedAssets may be a string or a list of strings.
func Parse(data []byte) (*models.Statement, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode statement payload: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("statement payload is not an object")
	}

	for _, key := range []string{"threat", "statement"} {
		if inner, ok := raw[key].(map[string]interface{}); ok {
			raw = inner
			break
		}
	}

	stmt := &models.Statement{
		NumericID:      getInt(raw, "numericId", "numeric_id"),
		ThreatSource:   getString(raw, "threatSource", "threat_source"),
		Prerequisites:  getString(raw, "prerequisites"),
		ThreatAction:   getString(raw, "threatAction", "threat_action"),
		ThreatImpact:   getString(raw, "threatImpact", "threat_impact"),
		ImpactedGoal:   getList(raw, "impactedGoal", "impacted_goal"),
		ImpactedAssets: getList(raw, "impactedAssets", "impacted_assets"),
		CustomTemplate: getString(raw, "customTemplate", "custom_template"),
		Statement:      getString(raw, "statement"),
	}
	return stmt, nil
}

func getString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok {
			return v
		}
	}
	return ""
}

func getInt(raw map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return int(v)
		case string:
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
				return n
			}
		}
	}
	return 0
}

func getList(raw map[string]interface{}, keys ...string) []string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return nil
			}
			return []string{v}
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}
