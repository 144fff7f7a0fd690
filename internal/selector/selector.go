// Package selector builds the clickable field sequence of an interactive
// statement editor on top of the template parser.
package selector

import (
	"strings"

	"threatcomposer/internal/fields"
	"threatcomposer/internal/format"
	"threatcomposer/internal/i18n"
	"threatcomposer/internal/parser"
	"threatcomposer/pkg/models"
)

// Kind is the type of a selector unit.
type Kind string

const (
	KindLiteral  Kind = "literal"
	KindField    Kind = "field"
	KindExpander Kind = "expander"
)

// Unit is one element of the selector sequence.
type Unit struct {
	Kind        Kind         `json:"kind"`
	Text        string       `json:"text,omitempty"`
	Field       fields.Field `json:"field,omitempty"`
	Filled      bool         `json:"filled,omitempty"`
	Highlighted bool         `json:"highlighted,omitempty"`
	Expanded    bool         `json:"expanded,omitempty"`
	Tooltip     string       `json:"tooltip,omitempty"`
}

// Options controls selector rendering.
type Options struct {
	// Current is the field being edited; its unit is highlighted.
	Current fields.Field
	// ExpandedGoal shows an empty impacted goal instead of collapsing it.
	ExpandedGoal bool
	Table        *format.Table
	Translate    i18n.Func
}

// Build returns the selector sequence for stmt. Unfilled fields show their
// translated display name.
func Build(stmt *models.Statement, opts Options) []Unit {
	if stmt == nil {
		stmt = &models.Statement{}
	}
	t := i18n.OrIdentity(opts.Translate)
	table := opts.Table
	if table == nil {
		table = format.Default()
	}

	custom := strings.TrimSpace(stmt.CustomTemplate) != ""
	template := stmt.CustomTemplate
	if !custom {
		entry, _ := table.Lookup(format.FullCombination)
		template = entry.Template
	}

	shortened := false
	combine := func(token, content, before string, filled bool) []Unit {
		if token == "" {
			return literal(before)
		}

		tooltip := fields.Tooltip(token)
		if token == string(fields.ImpactedGoal) && !opts.ExpandedGoal && !filled && !custom {
			shortened = true
			return []Unit{
				{Kind: KindLiteral, Text: ","},
				{Kind: KindExpander, Field: fields.ImpactedGoal, Tooltip: "Expand " + tooltip},
			}
		}

		var out []Unit
		if shortened {
			out = literal(t("negatively impacting") + " ")
		} else {
			out = literal(before)
		}

		text := content
		if !filled {
			text = t(placeholderName(token))
		}
		out = append(out, Unit{
			Kind:        KindField,
			Text:        text,
			Field:       fields.Field(token),
			Filled:      filled,
			Highlighted: opts.Current != "" && string(opts.Current) == token,
			Tooltip:     tooltip,
		})

		if token == string(fields.ImpactedGoal) && !filled {
			out = append(out, Unit{Kind: KindExpander, Field: fields.ImpactedGoal, Expanded: true, Tooltip: "Collapse " + tooltip})
		}
		return out
	}

	return parser.Parse(template, stmt, combine)
}

func literal(s string) []Unit {
	if s == "" {
		return nil
	}
	return []Unit{{Kind: KindLiteral, Text: s}}
}

func placeholderName(token string) string {
	if md, ok := fields.Lookup(token); ok {
		return md.Display
	}
	return token
}
