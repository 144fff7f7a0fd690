package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"threatcomposer/config"
	"threatcomposer/internal/fields"
	"threatcomposer/internal/format"
	inputredis "threatcomposer/internal/input/redis"
	"threatcomposer/internal/selector"
	"threatcomposer/internal/store"
	"threatcomposer/internal/transform/statement"
)

// commandConfig loads configArg when set, otherwise returns defaults.
func commandConfig(configArg string) (*config.Config, error) {
	cfg := &config.Config{}
	if strings.TrimSpace(configArg) != "" {
		loaded, err := config.LoadConfig(configArg)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

// readPayload returns inline when set, otherwise the contents of path, where
// "-" or "" means stdin.
func readPayload(inline, path string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional config file for composer and rules settings")
	locale := fs.String("locale", "", "Format table locale (overrides config)")
	inline := fs.String("statement", "", "Statement JSON")
	file := fs.String("file", "-", "Statement JSON file, - for stdin")
	resultOnly := fs.Bool("result", false, "Print only the render result")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := commandConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if *locale != "" {
		cfg.ThreatComposer.Composer.Locale = *locale
	}

	data, err := readPayload(*inline, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read statement: %v\n", err)
		return 1
	}
	stmt, err := statement.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode statement: %v\n", err)
		return 1
	}

	stage, err := newStage(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build composer: %v\n", err)
		return 1
	}

	threat := stage.Compose(stmt)
	var out interface{} = threat
	if *resultOnly {
		out = threat.Result
	}
	if err := printJSON(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func runFields(args []string) int {
	fs := flag.NewFlagSet("fields", flag.ContinueOnError)
	locale := fs.String("locale", format.DefaultLocale, "Format table locale")
	formatsDir := fs.String("formats-dir", "", "Directory of extra format tables")
	inline := fs.String("statement", "", "Statement JSON")
	file := fs.String("file", "-", "Statement JSON file, - for stdin")
	current := fs.String("current", "", "Field being edited, for example threat_action")
	expandGoal := fs.Bool("expand-goal", false, "Show an empty impacted goal instead of collapsing it")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var currentField fields.Field
	if *current != "" {
		md, ok := fields.Lookup(*current)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown field: %s\n", *current)
			return 2
		}
		currentField = md.Field
	}

	table, err := format.Resolve(*locale, *formatsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load format table: %v\n", err)
		return 1
	}

	data, err := readPayload(*inline, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read statement: %v\n", err)
		return 1
	}
	stmt, err := statement.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode statement: %v\n", err)
		return 1
	}

	units := selector.Build(stmt, selector.Options{
		Current:      currentField,
		ExpandedGoal: *expandGoal,
		Table:        table,
	})
	if err := printJSON(units); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func runEnqueue(args []string) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file with the input queue settings")
	file := fs.String("file", "-", "JSONL file of statements, - for stdin")
	timeout := fs.Duration("timeout", 10*time.Second, "Push timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := commandConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	data, err := readPayload("", *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read statements: %v\n", err)
		return 1
	}
	payloads, err := splitStatements(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	redisCfg := cfg.ThreatComposer.Input.Redis
	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
		Key:      redisCfg.Key,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create Redis client: %v\n", err)
		return 1
	}
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := consumer.Push(ctx, payloads...); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	fmt.Printf("enqueued statements=%d key=%s\n", len(payloads), redisCfg.Key)
	return 0
}

func runRecent(args []string) int {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file with the threat store settings")
	since := fs.Duration("since", time.Hour, "Show threats updated within this window")
	limit := fs.Int64("limit", 100, "Maximum number of threats")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := commandConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	redisCfg := cfg.ThreatComposer.Store.Redis
	s, err := store.NewRedisStore(store.RedisConfig{
		Addr:      redisCfg.Addr,
		Password:  redisCfg.Password,
		DB:        redisCfg.DB,
		KeyPrefix: redisCfg.KeyPrefix,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer s.Close()

	states, err := s.FetchUpdatedSince(time.Now().Add(-*since), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch threats: %v\n", err)
		return 1
	}
	if err := printJSON(states); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		return 1
	}
	return 0
}

// splitStatements returns the non-blank lines of a JSONL document after
// checking that each decodes as a statement.
func splitStatements(data []byte) ([][]byte, error) {
	var out [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if _, err := statement.Parse(raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, append([]byte(nil), raw...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan statements: %w", err)
	}
	return out, nil
}
