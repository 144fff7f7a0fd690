package main

import "testing"

func TestSplitStatementsSkipsBlankLines(t *testing.T) {
	data := []byte("{\"threatAction\": \"steal data\"}\n\n  {\"statement\": {\"threatSource\": \"insider\"}}  \n")
	payloads, err := splitStatements(data)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}
	if string(payloads[1]) != `{"statement": {"threatSource": "insider"}}` {
		t.Fatalf("expected trimmed payload, got %q", payloads[1])
	}
}

func TestSplitStatementsReportsLine(t *testing.T) {
	_, err := splitStatements([]byte("{}\nnot json\n"))
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if got := err.Error(); len(got) < 6 || got[:6] != "line 2" {
		t.Fatalf("expected error for line 2, got %q", got)
	}
}

func TestCommandConfigDefaults(t *testing.T) {
	cfg, err := commandConfig("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.ThreatComposer.Composer.Locale != "en" || cfg.ThreatComposer.Input.Redis.Key != "threat_statements" {
		t.Fatalf("unexpected defaults: %+v", cfg.ThreatComposer)
	}

	stage, err := newStage(cfg, nil)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	th := stage.Compose(nil)
	if th == nil {
		t.Fatalf("expected composed threat")
	}
}
