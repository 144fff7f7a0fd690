package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "threatcomposer.yml"

// Config is the root configuration.
type Config struct {
	ThreatComposer ThreatComposerConfig `yaml:"threatcomposer"`
}

// ThreatComposerConfig is the project configuration.
type ThreatComposerConfig struct {
	Input    InputConfig    `yaml:"input"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Composer ComposerConfig `yaml:"composer"`
	Rules    RulesConfig    `yaml:"rules"`
	Output   OutputConfig   `yaml:"output"`
	Store    StoreConfig    `yaml:"store"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig controls the statement queue.
type InputConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// PipelineConfig controls pipeline behavior.
type PipelineConfig struct {
	Workers       int           `yaml:"workers"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ComposerConfig selects the format table and translations.
type ComposerConfig struct {
	Locale string `yaml:"locale"`
	// FormatsDir holds extra <locale>.yml format tables. Optional.
	FormatsDir string `yaml:"formats_dir"`
	// Catalog is a translation catalog file. Optional.
	Catalog string `yaml:"catalog"`
}

// RulesConfig controls statement tagging rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RedisConfig controls Redis access.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// OutputConfig controls composed threat output.
type OutputConfig struct {
	Mode       string                 `yaml:"mode"` // file|http|clickhouse
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// StoreConfig controls the latest-threat store.
type StoreConfig struct {
	Enabled bool             `yaml:"enabled"`
	Redis   StoreRedisConfig `yaml:"redis"`
}

// StoreRedisConfig controls Redis access for the threat store.
type StoreRedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP inserts.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindConfigFile returns configArg when it exists, otherwise the default file
// in the working directory or next to the executable.
func FindConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}

	if exePath, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(exePath), DefaultFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return DefaultFileName
}

// ApplyDefaults fills unset values.
func ApplyDefaults(cfg *Config) {
	tc := &cfg.ThreatComposer

	if tc.Input.Redis.Addr == "" {
		tc.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if tc.Input.Redis.Key == "" {
		tc.Input.Redis.Key = "threat_statements"
	}
	if tc.Input.Redis.BlockTimeout == 0 {
		tc.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if tc.Pipeline.Workers <= 0 {
		tc.Pipeline.Workers = 4
	}
	if tc.Pipeline.BatchSize <= 0 {
		tc.Pipeline.BatchSize = 500
	}
	if tc.Pipeline.FlushInterval <= 0 {
		tc.Pipeline.FlushInterval = 2 * time.Second
	}

	if tc.Composer.Locale == "" {
		tc.Composer.Locale = "en"
	}

	if tc.Output.Mode == "" {
		tc.Output.Mode = "file"
	}
	if tc.Output.File.Path == "" {
		tc.Output.File.Path = "output/threats.jsonl"
	}
	if tc.Output.ClickHouse.Database == "" {
		tc.Output.ClickHouse.Database = "threatcomposer"
	}
	if tc.Output.ClickHouse.Table == "" {
		tc.Output.ClickHouse.Table = "composed_threats"
	}

	if tc.Store.Redis.Addr == "" {
		tc.Store.Redis.Addr = tc.Input.Redis.Addr
	}
	if tc.Store.Redis.KeyPrefix == "" {
		tc.Store.Redis.KeyPrefix = "threatcomposer"
	}

	if tc.Metrics.Addr == "" {
		tc.Metrics.Addr = ":9464"
	}
	if tc.Metrics.Path == "" {
		tc.Metrics.Path = "/metrics"
	}

	if tc.Logging.Level == "" {
		tc.Logging.Level = "info"
	}
}
