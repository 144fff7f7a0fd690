package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"threatcomposer/config"
	"threatcomposer/internal/composer"
	"threatcomposer/internal/format"
	"threatcomposer/internal/i18n"
	"threatcomposer/internal/logger"
	"threatcomposer/internal/metrics"
	"threatcomposer/internal/pipeline"
	"threatcomposer/internal/rules"
)

// newStage wires the composer, translations, rules and metrics from cfg. A nil
// reg leaves metrics unregistered.
func newStage(cfg *config.Config, reg prometheus.Registerer) (*pipeline.Stage, error) {
	tc := cfg.ThreatComposer

	table, err := format.Resolve(tc.Composer.Locale, tc.Composer.FormatsDir)
	if err != nil {
		return nil, fmt.Errorf("load format table: %w", err)
	}
	logger.Infof("Format table: locale=%s entries=%d", table.Locale(), table.Len())

	translate := i18n.Identity
	if strings.TrimSpace(tc.Composer.Catalog) != "" {
		catalog, err := i18n.LoadCatalog(tc.Composer.Catalog)
		if err != nil {
			return nil, err
		}
		translate = catalog.Func()
		logger.Infof("Translation catalog loaded: locale=%s messages=%d", catalog.Locale, len(catalog.Messages))
	}

	engine, err := newEngine(tc.Rules)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &pipeline.Stage{
		Composer:  composer.New(table),
		Translate: translate,
		Engine:    engine,
		Metrics:   collector,
	}, nil
}

func newEngine(cfg config.RulesConfig) (rules.Engine, error) {
	if !cfg.Enabled {
		return &rules.NoopEngine{}, nil
	}
	if strings.TrimSpace(cfg.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty; statement tagging disabled")
		return &rules.NoopEngine{}, nil
	}

	engine, stats, err := rules.NewSigmaEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load sigma rules from %s: %w", cfg.Path, err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_product=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedProduct,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; statement tagging is effectively disabled")
	}
	return engine, nil
}
