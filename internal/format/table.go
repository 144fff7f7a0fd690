package format

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"threatcomposer/internal/fields"
)

//go:embed locales/*.yml
var builtin embed.FS

// DefaultLocale is the locale of Default.
const DefaultLocale = "en"

// FullCombination is the key of the template that names every field.
const FullCombination = 63

// Entry is the sentence skeleton and canned suggestions for one combination.
type Entry struct {
	Template    string   `yaml:"template"`
	Suggestions []string `yaml:"suggestions"`
}

// Table maps field combinations to entries for one locale. A Table is
// immutable after it is built.
type Table struct {
	locale  string
	entries map[fields.Combination]Entry
}

type document struct {
	Locale  string        `yaml:"locale"`
	Formats map[int]Entry `yaml:"formats"`
}

var (
	builtinOnce   sync.Once
	builtinTables map[string]*Table
	builtinErr    error
)

// Default returns the built-in English table.
func Default() *Table {
	t, ok := ForLocale(DefaultLocale)
	if !ok {
		panic(fmt.Sprintf("format: built-in %s table missing: %v", DefaultLocale, builtinErr))
	}
	return t
}

// ForLocale returns the built-in table for a locale.
func ForLocale(locale string) (*Table, bool) {
	builtinOnce.Do(func() {
		builtinTables, builtinErr = loadFS(builtin, "locales")
	})
	t, ok := builtinTables[normalizeLocale(locale)]
	return t, ok
}

// Locales lists the built-in locales.
func Locales() []string {
	ForLocale(DefaultLocale)
	out := make([]string, 0, len(builtinTables))
	for loc := range builtinTables {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// New builds a table from literal entries. Entries are copied.
func New(locale string, entries map[int]Entry) (*Table, error) {
	t := &Table{
		locale:  normalizeLocale(locale),
		entries: make(map[fields.Combination]Entry, len(entries)),
	}
	for key, e := range entries {
		c := fields.Combination(key)
		if !c.Valid() || c == 0 {
			return nil, fmt.Errorf("format key %d out of range", key)
		}
		t.entries[c] = Entry{
			Template:    e.Template,
			Suggestions: append([]string(nil), e.Suggestions...),
		}
	}
	return t, nil
}

// Parse builds a table from a YAML document. The locale inside the document
// wins over fallbackLocale.
func Parse(data []byte, fallbackLocale string) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse format table: %w", err)
	}
	locale := doc.Locale
	if strings.TrimSpace(locale) == "" {
		locale = fallbackLocale
	}
	if strings.TrimSpace(locale) == "" {
		return nil, fmt.Errorf("format table has no locale")
	}
	return New(locale, doc.Formats)
}

// LoadFile reads one table. Without a locale key the file name is used.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read format table: %w", err)
	}
	t, err := Parse(data, localeFromName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadDir reads every <locale>.yml or <locale>.yaml table in dir.
func LoadDir(dir string) (map[string]*Table, error) {
	return loadFS(os.DirFS(dir), ".")
}

// Resolve picks the table for locale. Tables in dir, when dir is set, take
// precedence over the built-in ones.
func Resolve(locale, dir string) (*Table, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	if strings.TrimSpace(dir) != "" {
		tables, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		if t, ok := tables[normalizeLocale(locale)]; ok {
			return t, nil
		}
	}
	if t, ok := ForLocale(locale); ok {
		return t, nil
	}
	return nil, fmt.Errorf("no format table for locale %q", locale)
}

func loadFS(fsys fs.FS, dir string) (map[string]*Table, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list format tables: %w", err)
	}
	out := make(map[string]*Table, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, entry.Name())))
		if err != nil {
			return nil, fmt.Errorf("read format table %s: %w", entry.Name(), err)
		}
		t, err := Parse(data, localeFromName(entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		out[t.locale] = t
	}
	return out, nil
}

// Locale returns the table's locale.
func (t *Table) Locale() string {
	if t == nil {
		return ""
	}
	return t.locale
}

// Lookup returns the entry for a combination. Absence is not an error.
func (t *Table) Lookup(c fields.Combination) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[c]
	if !ok {
		return Entry{}, false
	}
	e.Suggestions = append([]string(nil), e.Suggestions...)
	return e, true
}

// Keys returns the combinations that have entries, ascending.
func (t *Table) Keys() []fields.Combination {
	if t == nil {
		return nil
	}
	out := make([]fields.Combination, 0, len(t.entries))
	for c := range t.entries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func localeFromName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}
