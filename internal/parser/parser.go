// Package parser tokenizes statement templates and substitutes field content.
//
// A template is literal text interleaved with bracketed tokens such as
// "[threat_action]". Parse scans the template once and reports every token to
// a caller-supplied Combiner, which decides what output units the substitution
// produces. Plain-string rendering and interactive token trees share the same
// scan this way.
package parser

import (
	"regexp"
	"strings"

	"threatcomposer/internal/fields"
	"threatcomposer/pkg/models"
)

var tokenRegex = regexp.MustCompile(`\[([^\[\]]+)\]`)

// Combiner turns one substitution event into zero or more output units.
//
// token is the bracketed name, content the field's text ("" for unknown or
// empty fields), before the literal text since the previous token, and filled
// whether content is non-blank. Literal text after the last token arrives as
// a final event with token == "".
type Combiner[O any] func(token, content, before string, filled bool) []O

// Parse scans template left to right and collects the combiner's output.
func Parse[O any](template string, stmt *models.Statement, combine Combiner[O]) []O {
	if template == "" || combine == nil {
		return nil
	}

	var out []O
	last := 0
	for _, loc := range tokenRegex.FindAllStringSubmatchIndex(template, -1) {
		token := template[loc[2]:loc[3]]
		before := template[last:loc[0]]
		content := fields.Content(stmt, fields.Field(token))
		filled := strings.TrimSpace(content) != ""
		out = append(out, combine(token, content, before, filled)...)
		last = loc[1]
	}

	if tail := template[last:]; tail != "" {
		out = append(out, combine("", "", tail, false)...)
	}
	return out
}

// Tokens lists the token names of template in order of appearance.
func Tokens(template string) []string {
	matches := tokenRegex.FindAllStringSubmatch(template, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// UnknownTokens lists the token names that do not name a statement field.
func UnknownTokens(template string) []string {
	var out []string
	for _, token := range Tokens(template) {
		if _, ok := fields.Lookup(token); !ok {
			out = append(out, token)
		}
	}
	return out
}
