// Package composer renders threat statements from partially filled fields.
package composer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"threatcomposer/internal/fields"
	"threatcomposer/internal/format"
	"threatcomposer/internal/i18n"
	"threatcomposer/internal/parser"
	"threatcomposer/pkg/models"
)

// Placeholder pads an empty prerequisites field so the selected template stays
// well formed. It never reaches rendered output.
const Placeholder = "<placeholder>"

const (
	fallbackThreatSource = "threat source"
	fallbackThreatAction = "perform a threat action"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Case is the branch a render took.
type Case string

const (
	CaseEmpty    Case = "empty"
	CaseSingle   Case = "single"
	CaseMultiple Case = "multiple"
)

// Info describes how a statement was classified while rendering.
type Info struct {
	Case        Case
	Combination fields.Combination
	Filled      []fields.Field
	// FormatKey is the padded combination looked up in the format table.
	FormatKey   fields.Combination
	FormatFound bool
}

// Composer renders statements against one format table.
type Composer struct {
	table *format.Table
}

// New creates a composer. A nil table selects the built-in English table.
func New(table *format.Table) *Composer {
	if table == nil {
		table = format.Default()
	}
	return &Composer{table: table}
}

// Table returns the format table in use.
func (c *Composer) Table() *format.Table {
	return c.table
}

// Render composes the plain statement, the display sequence and the sorted
// suggestions for stmt. A nil t translates nothing.
func (c *Composer) Render(stmt *models.Statement, t i18n.Func) models.RenderResult {
	res, _ := c.RenderWithInfo(stmt, t)
	return res
}

// RenderWithInfo is Render plus the classification of the statement.
func (c *Composer) RenderWithInfo(stmt *models.Statement, t i18n.Func) (models.RenderResult, Info) {
	if stmt == nil {
		stmt = &models.Statement{}
	}
	t = i18n.OrIdentity(t)

	combination, filled := fields.Calculate(stmt)
	info := Info{Combination: combination, Filled: filled}

	if combination == 0 {
		info.Case = CaseEmpty
		return models.RenderResult{
			Statement:          "",
			DisplayedStatement: []models.DisplayUnit{},
			Suggestions:        []string{},
		}, info
	}

	suggestions := append(make([]string, 0, 8), singleWordSuggestions(stmt, t)...)

	if len(filled) == 1 {
		info.Case = CaseSingle
		sort.Strings(suggestions)
		return models.RenderResult{
			Statement:   ellipsize(stmt, filled[0]),
			Suggestions: suggestions,
		}, info
	}

	info.Case = CaseMultiple
	suggestions = append(suggestions, missingFieldSuggestions(stmt, t)...)

	padded := pad(stmt)
	info.FormatKey, _ = fields.Calculate(padded)
	entry, ok := c.table.Lookup(info.FormatKey)
	info.FormatFound = ok
	suggestions = append(suggestions, entry.Suggestions...)

	template := entry.Template
	if strings.TrimSpace(stmt.CustomTemplate) != "" {
		template = stmt.CustomTemplate
	}

	parts := parser.Parse(template, padded, combineParts)

	plain := make([]string, 0, len(parts))
	display := make([]models.DisplayUnit, 0, len(parts))
	for _, p := range parts {
		plain = append(plain, p.plain)
		if p.visible {
			display = append(display, p.display)
		}
	}

	sort.Strings(suggestions)
	return models.RenderResult{
		Statement:          cleanup(strings.Join(plain, " ")),
		DisplayedStatement: display,
		Suggestions:        suggestions,
	}, info
}

type part struct {
	plain   string
	display models.DisplayUnit
	visible bool
}

func combineParts(token, content, before string, _ bool) []part {
	out := []part{{plain: before, display: models.LiteralUnit(before), visible: before != ""}}
	if token == "" {
		return out
	}

	if token == string(fields.Prerequisites) && content == Placeholder {
		content = ""
	}

	kind := models.DisplayPlain
	if token == string(fields.ThreatAction) {
		kind = models.DisplayEmphasized
	}
	out = append(out, part{
		plain: content,
		display: models.TokenUnit(models.DisplayToken{
			Type:    kind,
			Content: content,
			Tooltip: fields.Tooltip(token),
		}),
		visible: true,
	})
	return out
}

func pad(stmt *models.Statement) *models.Statement {
	padded := *stmt
	if !fields.Filled(stmt, fields.ThreatSource) {
		padded.ThreatSource = fallbackThreatSource
	}
	if !fields.Filled(stmt, fields.Prerequisites) {
		padded.Prerequisites = Placeholder
	}
	if !fields.Filled(stmt, fields.ThreatAction) {
		padded.ThreatAction = fallbackThreatAction
	}
	return &padded
}

func ellipsize(stmt *models.Statement, f fields.Field) string {
	prefix, suffix := "...", "..."
	switch fields.Info(f).Position {
	case 1:
		prefix = ""
	case fields.Count():
		suffix = ""
	}
	return prefix + fields.Content(stmt, f) + suffix
}

func singleWordSuggestions(stmt *models.Statement, t i18n.Func) []string {
	var out []string
	for _, f := range []fields.Field{fields.Prerequisites, fields.ThreatAction, fields.ThreatImpact} {
		if len(strings.Fields(fields.Content(stmt, f))) != 1 {
			continue
		}
		out = append(out, fmt.Sprintf("[%s] %s %s %s",
			f,
			t("Looks like your"),
			t(string(f)),
			t("is a single word, consider being more descriptive"),
		))
	}
	return out
}

func missingFieldSuggestions(stmt *models.Statement, t i18n.Func) []string {
	var out []string
	if !fields.Filled(stmt, fields.ThreatSource) {
		out = append(out, tagged(fields.ThreatSource, t("Consider specifying who or what is the source of the threat")))
	}
	if !fields.Filled(stmt, fields.Prerequisites) {
		out = append(out,
			tagged(fields.Prerequisites, t("Consider what conditions or requirement that must be met in order for a threat sources actions to be viable")),
			tagged(fields.Prerequisites, t("No prerequisites this is often a sign you can decompose into multiple threat statements that have different prerequisites")),
		)
	}
	if !fields.Filled(stmt, fields.ThreatAction) {
		out = append(out, tagged(fields.ThreatAction, t("Consider what actions are being performed by, or related to the threat source. Knowing this is required in order to mitigate the threat")))
	}
	return out
}

func tagged(f fields.Field, msg string) string {
	return "[" + string(f) + "] " + msg
}

// cleanup collapses whitespace runs and removes the space left before commas
// by empty substitutions.
func cleanup(s string) string {
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ,", ",")
	return strings.TrimSpace(s)
}
