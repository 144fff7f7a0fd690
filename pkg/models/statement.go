package models

// Statement is a threat statement being composed field by field.
type Statement struct {
	NumericID      int      `json:"numericId,omitempty"`
	ThreatSource   string   `json:"threatSource,omitempty"`
	Prerequisites  string   `json:"prerequisites,omitempty"`
	ThreatAction   string   `json:"threatAction,omitempty"`
	ThreatImpact   string   `json:"threatImpact,omitempty"`
	ImpactedGoal   []string `json:"impactedGoal,omitempty"`
	ImpactedAssets []string `json:"impactedAssets,omitempty"`
	CustomTemplate string   `json:"customTemplate,omitempty"`

	// Statement is the last rendered text. It is carried through untouched.
	Statement string `json:"statement,omitempty"`
}

// HasNumericID reports whether the statement was assigned a threat number.
func (s *Statement) HasNumericID() bool {
	return s != nil && s.NumericID > 0
}
