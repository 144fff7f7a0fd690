package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"threatcomposer/internal/composer"
	"threatcomposer/internal/format"
	"threatcomposer/internal/i18n"
	"threatcomposer/internal/pipeline"
	"threatcomposer/internal/rules"
	"threatcomposer/internal/transform/statement"
	"threatcomposer/pkg/models"
)

func main() {
	input := flag.String("input", "statements.jsonl", "Statement JSONL input path, - for stdin")
	output := flag.String("output", "output/threats.jsonl", "Composed threat JSONL output path")
	locale := flag.String("locale", format.DefaultLocale, "Format table locale")
	formatsDir := flag.String("formats-dir", "", "Directory of extra format tables")
	catalog := flag.String("catalog", "", "Translation catalog YAML file")
	rulesPath := flag.String("rules", "", "Sigma rule file or directory for statement tagging")
	strict := flag.Bool("strict", false, "Fail on the first undecodable line")
	flag.Parse()

	stage, err := buildStage(*locale, *formatsDir, *catalog, *rulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	stmts, skipped, err := loadStatements(*input, *strict)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load statements: %v\n", err)
		os.Exit(1)
	}

	threats := make([]*models.ComposedThreat, 0, len(stmts))
	for _, stmt := range stmts {
		threats = append(threats, stage.Compose(stmt))
	}

	if err := writeJSONLines(*output, threats); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write threats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("rendered statements=%d skipped=%d output=%s\n", len(threats), skipped, *output)
}

func buildStage(locale, formatsDir, catalogPath, rulesPath string) (*pipeline.Stage, error) {
	table, err := format.Resolve(locale, formatsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load format table: %w", err)
	}

	stage := &pipeline.Stage{Composer: composer.New(table)}
	if strings.TrimSpace(catalogPath) != "" {
		c, err := i18n.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		stage.Translate = c.Func()
	}
	if strings.TrimSpace(rulesPath) != "" {
		engine, _, err := rules.NewSigmaEngine(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		stage.Engine = engine
	}
	return stage, nil
}

// loadStatements decodes one statement per non-blank line. Undecodable lines
// are counted and skipped unless strict is set.
func loadStatements(path string, strict bool) ([]*models.Statement, int, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var out []*models.Statement
	skipped := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		stmt, err := statement.Parse([]byte(raw))
		if err != nil {
			if strict {
				return nil, skipped, fmt.Errorf("line %d: %w", line, err)
			}
			fmt.Fprintf(os.Stderr, "skipping line %d: %v\n", line, err)
			skipped++
			continue
		}
		out = append(out, stmt)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan input: %w", err)
	}
	return out, skipped, nil
}

func writeJSONLines[T any](path string, rows []T) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, item := range rows {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
