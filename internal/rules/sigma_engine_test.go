package rules

import (
	"os"
	"path/filepath"
	"testing"

	"threatcomposer/pkg/models"
)

const exfilRule = `title: Data exfiltration statement
id: tc-exfil-001
status: experimental
level: high
logsource:
  product: threatcomposer
detection:
  selection:
    threat_action|contains: exfiltrate
  condition: selection
tags:
  - attack.exfiltration
  - attack.t1041
`

const otherProductRule = `title: Windows only
id: win-001
logsource:
  product: windows
detection:
  selection:
    EventID: 1
  condition: selection
`

func writeRule(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("write rule: %v", err)
	}
}

func TestSigmaEngineTagsMatchingStatements(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "exfil.yml", exfilRule)
	writeRule(t, dir, "windows.yml", otherProductRule)
	writeRule(t, dir, "broken.yaml", "title: [unterminated")
	writeRule(t, dir, "README.md", "not a rule")

	engine, stats, err := NewSigmaEngine(dir)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if stats.TotalFiles != 3 || stats.Loaded != 1 || stats.SkippedProduct != 1 || stats.SkippedInvalid != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	tags := engine.Apply(&models.Statement{ThreatAction: "exfiltrate customer records"}, "")
	if len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(tags))
	}
	want := models.ThreatTag{ID: "tc-exfil-001", Name: "Data exfiltration statement", Severity: "high", Tactic: "exfiltration", Technique: "T1041"}
	if tags[0] != want {
		t.Fatalf("unexpected tag: %+v", tags[0])
	}

	if got := engine.Apply(&models.Statement{ThreatAction: "delete backups"}, ""); len(got) != 0 {
		t.Fatalf("expected no tags, got %+v", got)
	}
}

func TestNewSigmaEngineRejectsNonYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.txt")
	writeRule(t, filepath.Dir(path), "rule.txt", exfilRule)
	if _, _, err := NewSigmaEngine(path); err == nil {
		t.Fatalf("expected error for non-yaml rule file")
	}
}

func TestParseAttackTags(t *testing.T) {
	tactic, technique := parseAttackTags([]string{"attack.privilege_escalation", "attack.t1055.012", "cve.2021-1234"})
	if tactic != "privilege-escalation" || technique != "T1055/012" {
		t.Fatalf("unexpected tags: %s %s", tactic, technique)
	}
}

func TestNoopEngine(t *testing.T) {
	var e Engine = &NoopEngine{}
	if tags := e.Apply(&models.Statement{ThreatAction: "x"}, "x"); tags != nil {
		t.Fatalf("expected nil tags, got %v", tags)
	}
}
