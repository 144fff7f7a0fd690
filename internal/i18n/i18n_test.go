package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIdentity(t *testing.T) {
	if OrIdentity(nil)("threat_action") != "threat_action" {
		t.Fatalf("expected identity for nil func")
	}
}

func TestCatalogPassesMissingKeysThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "de.yml")
	doc := "locale: DE\nmessages:\n  threat_action: Bedrohungsaktion\n  empty: \"\"\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Locale != "de" {
		t.Fatalf("expected locale de, got %s", c.Locale)
	}
	tr := c.Func()
	if got := tr("threat_action"); got != "Bedrohungsaktion" {
		t.Fatalf("unexpected translation: %s", got)
	}
	if got := tr("prerequisites"); got != "prerequisites" {
		t.Fatalf("expected pass-through, got %s", got)
	}
	if got := tr("empty"); got != "empty" {
		t.Fatalf("expected pass-through for empty translation, got %s", got)
	}

	var nilCatalog *Catalog
	if nilCatalog.Func()("x") != "x" {
		t.Fatalf("expected identity for nil catalog")
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error")
	}
}
