package models

import (
	"encoding/json"
	"testing"
)

func TestDisplayUnitJSONShape(t *testing.T) {
	units := []DisplayUnit{
		LiteralUnit("A"),
		TokenUnit(DisplayToken{Type: DisplayEmphasized, Content: "steal data", Tooltip: "action"}),
	}
	data, err := json.Marshal(units)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `["A",{"type":"b","content":"steal data","tooltip":"action"}]`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}

	var back []DisplayUnit
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 2 || back[0].IsToken() || !back[1].IsToken() {
		t.Fatalf("unexpected units: %+v", back)
	}
	if back[1].Text() != "steal data" || back[1].Token.Type != DisplayEmphasized {
		t.Fatalf("unexpected token: %+v", back[1].Token)
	}
}

func TestComposedThreatKeyPrefersNumericID(t *testing.T) {
	th := &ComposedThreat{RecordID: "rec-1", NumericID: 12}
	if th.Key() != "12" {
		t.Fatalf("expected 12, got %s", th.Key())
	}
	th.NumericID = -1
	if th.Key() != "rec-1" {
		t.Fatalf("expected rec-1, got %s", th.Key())
	}
}
