package format

import (
	"os"
	"path/filepath"
	"testing"

	"threatcomposer/internal/fields"
	"threatcomposer/internal/parser"
)

func TestDefaultTableCoversPaddedCombinations(t *testing.T) {
	table := Default()
	if table.Locale() != "en" {
		t.Fatalf("expected en locale, got %s", table.Locale())
	}
	base := fields.Combination(1 | 2 | 4)
	for extra := fields.Combination(0); extra < 8; extra++ {
		key := base | extra<<3
		entry, ok := table.Lookup(key)
		if !ok {
			t.Fatalf("expected entry for combination %d", key)
		}
		for _, token := range parser.Tokens(entry.Template) {
			md, known := fields.Lookup(token)
			if !known {
				t.Fatalf("combination %d uses unknown token %s", key, token)
			}
			if !key.Has(md.Field) {
				t.Fatalf("combination %d template uses unfilled field %s", key, token)
			}
		}
		if got := len(parser.Tokens(entry.Template)); got != len(key.Fields()) {
			t.Fatalf("combination %d: expected %d tokens, got %d", key, len(key.Fields()), got)
		}
	}
}

func TestLookupMissingCombination(t *testing.T) {
	if _, ok := Default().Lookup(1); ok {
		t.Fatalf("did not expect an entry for combination 1")
	}
	var nilTable *Table
	if _, ok := nilTable.Lookup(FullCombination); ok {
		t.Fatalf("did not expect nil table lookup to succeed")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	table := Default()
	entry, _ := table.Lookup(7)
	entry.Suggestions[0] = "mutated"
	again, _ := table.Lookup(7)
	if again.Suggestions[0] == "mutated" {
		t.Fatalf("expected table to be immutable")
	}
}

func TestNewRejectsOutOfRangeKeys(t *testing.T) {
	if _, err := New("en", map[int]Entry{64: {Template: "x"}}); err == nil {
		t.Fatalf("expected error for key 64")
	}
	if _, err := New("en", map[int]Entry{0: {Template: "x"}}); err == nil {
		t.Fatalf("expected error for key 0")
	}
}

func TestLoadDirUsesFileNameAsLocale(t *testing.T) {
	dir := t.TempDir()
	doc := "formats:\n  7:\n    template: \"Ein [threat_source] [prerequisites] kann [threat_action]\"\n"
	if err := os.WriteFile(filepath.Join(dir, "DE.yml"), []byte(doc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tables, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	de, ok := tables["de"]
	if !ok || len(tables) != 1 {
		t.Fatalf("expected only a de table, got %v", tables)
	}
	entry, ok := de.Lookup(7)
	if !ok || entry.Template != "Ein [threat_source] [prerequisites] kann [threat_action]" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if diff := de.Keys(); len(diff) != 1 || diff[0] != 7 {
		t.Fatalf("unexpected keys: %v", diff)
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fr.yml")
	if err := os.WriteFile(path, []byte("formats: [unclosed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLocales(t *testing.T) {
	locales := Locales()
	if len(locales) == 0 || locales[0] != "en" {
		t.Fatalf("unexpected locales: %v", locales)
	}
}

func TestResolvePrefersDirectoryThenBuiltin(t *testing.T) {
	dir := t.TempDir()
	doc := "locale: de\nformats:\n  7:\n    template: \"Ein [threat_source]\"\n"
	if err := os.WriteFile(filepath.Join(dir, "de.yml"), []byte(doc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	de, err := Resolve("de", dir)
	if err != nil || de.Locale() != "de" {
		t.Fatalf("expected de table, got %v (%v)", de, err)
	}
	en, err := Resolve("", dir)
	if err != nil || en != Default() {
		t.Fatalf("expected built-in en table, got %v (%v)", en, err)
	}
	if _, err := Resolve("xx", ""); err == nil {
		t.Fatalf("expected error for unknown locale")
	}
}
