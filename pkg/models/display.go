package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DisplayType selects how a display token is emphasized.
type DisplayType string

const (
	DisplayPlain      DisplayType = "span"
	DisplayEmphasized DisplayType = "b"
)

// DisplayToken is one substituted field in a displayed statement.
type DisplayToken struct {
	Type    DisplayType `json:"type"`
	Content string      `json:"content"`
	Tooltip string      `json:"tooltip,omitempty"`
}

// DisplayUnit is either a literal string or a token. Exactly one is set.
type DisplayUnit struct {
	Literal string
	Token   *DisplayToken
}

// LiteralUnit wraps connective text.
func LiteralUnit(s string) DisplayUnit {
	return DisplayUnit{Literal: s}
}

// TokenUnit wraps a field token.
func TokenUnit(tok DisplayToken) DisplayUnit {
	return DisplayUnit{Token: &tok}
}

// IsToken reports whether the unit holds a field token.
func (u DisplayUnit) IsToken() bool {
	return u.Token != nil
}

// Text returns the visible text of the unit.
func (u DisplayUnit) Text() string {
	if u.Token != nil {
		return u.Token.Content
	}
	return u.Literal
}

// MarshalJSON encodes literals as bare strings and tokens as objects.
func (u DisplayUnit) MarshalJSON() ([]byte, error) {
	if u.Token != nil {
		return json.Marshal(u.Token)
	}
	return json.Marshal(u.Literal)
}

// UnmarshalJSON accepts a bare string or a token object.
func (u *DisplayUnit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty display unit")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = DisplayUnit{Literal: s}
		return nil
	}
	var tok DisplayToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("decode display token: %w", err)
	}
	*u = DisplayUnit{Token: &tok}
	return nil
}

// RenderResult is the output of composing one statement.
type RenderResult struct {
	Statement          string        `json:"statement"`
	DisplayedStatement []DisplayUnit `json:"displayedStatement,omitempty"`
	Suggestions        []string      `json:"suggestions"`
}
