package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threatcomposer/config"
	inputredis "threatcomposer/internal/input/redis"
	"threatcomposer/internal/logger"
	"threatcomposer/internal/output/threatclickhouse"
	"threatcomposer/internal/output/threathttp"
	"threatcomposer/internal/output/threatjson"
	"threatcomposer/internal/pipeline"
	"threatcomposer/internal/store"
)

func loadConfig(configArg string) (*config.Config, string) {
	configPath := config.FindConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.ApplyDefaults(cfg)
	return cfg, configPath
}

func runServe(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}
	cfg, configPath := loadConfig(configArg)
	tc := cfg.ThreatComposer

	if err := logger.Init(logger.Options{
		Enabled: tc.Logging.Enabled,
		Level:   tc.Logging.Level,
		File:    tc.Logging.File,
		Console: tc.Logging.Console,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("ThreatComposer starting")
	logger.Infof("Config loaded from: %s", configPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	stage, err := newStage(cfg, reg)
	if err != nil {
		logger.Errorf("Failed to build composer stage: %v", err)
		log.Fatalf("Failed to build composer stage: %v", err)
	}

	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:         tc.Input.Redis.Addr,
		Password:     tc.Input.Redis.Password,
		DB:           tc.Input.Redis.DB,
		Key:          tc.Input.Redis.Key,
		BlockTimeout: tc.Input.Redis.BlockTimeout,
	})
	if err != nil {
		logger.Errorf("Failed to create Redis consumer: %v", err)
		log.Fatalf("Failed to create Redis consumer: %v", err)
	}

	var writer pipeline.ThreatWriter
	switch tc.Output.Mode {
	case "file":
		w, err := threatjson.NewWriter(tc.Output.File.Path)
		if err != nil {
			logger.Errorf("Failed to create threat file writer: %v", err)
			log.Fatalf("Failed to create threat file writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: file (%s)", tc.Output.File.Path)
	case "http":
		w, err := threathttp.NewWriter(threathttp.Config{
			URL:     tc.Output.HTTP.URL,
			Timeout: tc.Output.HTTP.Timeout,
			Headers: tc.Output.HTTP.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create threat HTTP writer: %v", err)
			log.Fatalf("Failed to create threat HTTP writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: http (%s)", tc.Output.HTTP.URL)
	case "clickhouse":
		ch := tc.Output.ClickHouse
		w, err := threatclickhouse.NewWriter(threatclickhouse.Config{
			URL:      ch.URL,
			Database: ch.Database,
			Table:    ch.Table,
			Username: ch.Username,
			Password: ch.Password,
			Timeout:  ch.Timeout,
			Headers:  ch.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create threat ClickHouse writer: %v", err)
			log.Fatalf("Failed to create threat ClickHouse writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: clickhouse (%s/%s.%s)", ch.URL, ch.Database, ch.Table)
	default:
		log.Fatalf("Unknown output mode: %s", tc.Output.Mode)
	}

	var threatStore pipeline.ThreatWriter
	if tc.Store.Enabled {
		s, err := store.NewRedisStore(store.RedisConfig{
			Addr:      tc.Store.Redis.Addr,
			Password:  tc.Store.Redis.Password,
			DB:        tc.Store.Redis.DB,
			KeyPrefix: tc.Store.Redis.KeyPrefix,
		})
		if err != nil {
			logger.Errorf("Failed to create threat store: %v", err)
			log.Fatalf("Failed to create threat store: %v", err)
		}
		threatStore = s
		logger.Infof("Threat store enabled (%s, prefix=%s)", tc.Store.Redis.Addr, tc.Store.Redis.KeyPrefix)
	}

	pipe := pipeline.NewComposePipeline(pipeline.Options{
		Source:        consumer,
		Stage:         stage,
		Writer:        writer,
		Store:         threatStore,
		Workers:       tc.Pipeline.Workers,
		BatchSize:     tc.Pipeline.BatchSize,
		FlushInterval: tc.Pipeline.FlushInterval,
	})

	var metricsServer *http.Server
	if tc.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(tc.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{Addr: tc.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics server error: %v", err)
			}
		}()
		logger.Infof("Metrics listening on %s%s", tc.Metrics.Addr, tc.Metrics.Path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := pipe.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Pipeline error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warnf("Pipeline did not drain within 10s")
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Error stopping metrics server: %v", err)
		}
		shutdownCancel()
	}

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	logger.Infof("ThreatComposer stopped")
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "render":
			os.Exit(runRender(os.Args[2:]))
		case "fields":
			os.Exit(runFields(os.Args[2:]))
		case "enqueue":
			os.Exit(runEnqueue(os.Args[2:]))
		case "recent":
			os.Exit(runRecent(os.Args[2:]))
		default:
			if strings.HasPrefix(os.Args[1], "-") {
				log.Fatalf("Unknown flag %s; subcommands are serve, render, fields, enqueue, recent", os.Args[1])
			}
			// First arg is a config path.
			runServe(os.Args[1:])
			return
		}
	}

	runServe(nil)
}
