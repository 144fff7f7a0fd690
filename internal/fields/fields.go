package fields

import (
	"strings"

	"threatcomposer/pkg/models"
)

// Field identifies one slot of a threat statement by its template token.
type Field string

const (
	ThreatSource   Field = "threat_source"
	Prerequisites  Field = "prerequisites"
	ThreatAction   Field = "threat_action"
	ThreatImpact   Field = "threat_impact"
	ImpactedGoal   Field = "impacted_goal"
	ImpactedAssets Field = "impacted_assets"
)

// Metadata describes a field for composers and interactive renderers.
type Metadata struct {
	Field    Field
	Position int
	Display  string
	Tooltip  string
}

// canonical is ordered by position. Positions are 1-based and contiguous.
var canonical = []Metadata{
	{Field: ThreatSource, Position: 1, Display: "threat source", Tooltip: "The entity taking action"},
	{Field: Prerequisites, Position: 2, Display: "prerequisites", Tooltip: "Conditions or requirements that must be met for a threat source's action to be viable"},
	{Field: ThreatAction, Position: 3, Display: "threat action", Tooltip: "The action being performed by, or related to, the threat source"},
	{Field: ThreatImpact, Position: 4, Display: "threat impact", Tooltip: "The direct impact of a successful threat action"},
	{Field: ImpactedGoal, Position: 5, Display: "impacted goal", Tooltip: "The information security or business objective that is negatively affected"},
	{Field: ImpactedAssets, Position: 6, Display: "impacted assets", Tooltip: "The assets affected by a successful threat action"},
}

var byField = func() map[Field]Metadata {
	m := make(map[Field]Metadata, len(canonical))
	for _, md := range canonical {
		m[md.Field] = md
	}
	return m
}()

// All returns every field in canonical order.
func All() []Field {
	out := make([]Field, 0, len(canonical))
	for _, md := range canonical {
		out = append(out, md.Field)
	}
	return out
}

// Count is the number of fields.
func Count() int {
	return len(canonical)
}

// Lookup resolves a token name to its field metadata.
func Lookup(token string) (Metadata, bool) {
	md, ok := byField[Field(token)]
	return md, ok
}

// Info returns metadata for a field. Unknown fields yield zero metadata.
func Info(f Field) Metadata {
	return byField[f]
}

// Tooltip returns the hint text of a token, or "" for unknown tokens.
func Tooltip(token string) string {
	return byField[Field(token)].Tooltip
}

// Content returns the substitution text of a field. List fields are joined
// as "a", "a and b", "a, b and c". Unknown fields yield "".
func Content(stmt *models.Statement, f Field) string {
	if stmt == nil {
		return ""
	}
	switch f {
	case ThreatSource:
		return stmt.ThreatSource
	case Prerequisites:
		return stmt.Prerequisites
	case ThreatAction:
		return stmt.ThreatAction
	case ThreatImpact:
		return stmt.ThreatImpact
	case ImpactedGoal:
		return joinItems(stmt.ImpactedGoal)
	case ImpactedAssets:
		return joinItems(stmt.ImpactedAssets)
	default:
		return ""
	}
}

// Filled reports whether a field has non-blank content.
func Filled(stmt *models.Statement, f Field) bool {
	return strings.TrimSpace(Content(stmt, f)) != ""
}

// RecommendedEditor returns the first unfilled field in canonical order.
func RecommendedEditor(stmt *models.Statement) (Field, bool) {
	for _, md := range canonical {
		if !Filled(stmt, md.Field) {
			return md.Field, true
		}
	}
	return "", false
}

func joinItems(items []string) string {
	clean := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			clean = append(clean, item)
		}
	}
	switch len(clean) {
	case 0:
		return ""
	case 1:
		return clean[0]
	default:
		return strings.Join(clean[:len(clean)-1], ", ") + " and " + clean[len(clean)-1]
	}
}
