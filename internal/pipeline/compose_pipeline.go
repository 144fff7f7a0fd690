package pipeline

import (
	"context"
	"sync"
	"time"

	"threatcomposer/internal/logger"
	"threatcomposer/internal/transform/statement"
	"threatcomposer/pkg/models"
)

var log = logger.Named("pipeline")

// Options configures a ComposePipeline.
type Options struct {
	Source Source
	Stage  *Stage
	Writer ThreatWriter
	// Store is optional and receives the same batches as Writer.
	Store ThreatWriter

	Workers       int
	BatchSize     int
	FlushInterval time.Duration
}

// ComposePipeline consumes statement payloads, composes them and writes the
// composed threats in batches.
type ComposePipeline struct {
	source        Source
	stage         *Stage
	writer        ThreatWriter
	store         ThreatWriter
	workers       int
	batchSize     int
	flushInterval time.Duration
}

// NewComposePipeline creates a pipeline.
func NewComposePipeline(opts Options) *ComposePipeline {
	p := &ComposePipeline{
		source:        opts.Source,
		stage:         opts.Stage,
		writer:        opts.Writer,
		store:         opts.Store,
		workers:       opts.Workers,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
	}
	if p.workers <= 0 {
		p.workers = 4
	}
	if p.batchSize <= 0 {
		p.batchSize = 500
	}
	if p.flushInterval <= 0 {
		p.flushInterval = 2 * time.Second
	}
	return p
}

// Run starts the pipeline and blocks until ctx is done and every popped
// payload has been flushed.
func (p *ComposePipeline) Run(ctx context.Context) error {
	log.Infof("Compose pipeline started (workers=%d batch=%d flush=%s)", p.workers, p.batchSize, p.flushInterval)

	msgCh := make(chan []byte, p.workers*4)
	workCh := make(chan *models.ComposedThreat, p.workers*4)

	go func() {
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	var workers sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			p.workerLoop(msgCh, workCh)
		}()
	}
	go func() {
		workers.Wait()
		close(workCh)
	}()

	p.writeLoop(ctx, workCh)
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *ComposePipeline) Close() error {
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			log.Errorf("Failed to close threat store: %v", err)
		}
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			log.Errorf("Failed to close threat writer: %v", err)
		}
	}
	if p.source != nil {
		return p.source.Close()
	}
	return nil
}

func (p *ComposePipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		if ctx.Err() != nil {
			return
		}
		payload, err := p.source.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("Failed to pop statement: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if payload == nil {
			continue
		}
		out <- payload
	}
}

func (p *ComposePipeline) workerLoop(in <-chan []byte, out chan<- *models.ComposedThreat) {
	for payload := range in {
		stmt, err := statement.Parse(payload)
		if err != nil {
			p.stage.Metrics.DecodeError()
			log.Warnf("Failed to decode statement: %v", err)
			continue
		}
		out <- p.stage.Compose(stmt)
	}
}

func (p *ComposePipeline) writeLoop(ctx context.Context, in <-chan *models.ComposedThreat) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	var batch []*models.ComposedThreat
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.writeWithRetry(ctx, "threat writer", p.writer, batch)
		if p.store != nil {
			p.writeWithRetry(ctx, "threat store", p.store, batch)
		}
		batch = nil
	}

	for {
		select {
		case <-ticker.C:
			flush()
		case th, ok := <-in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, th)
			if len(batch) >= p.batchSize {
				flush()
			}
		}
	}
}

// writeWithRetry retries every second until the write succeeds. Once ctx is
// done it makes a single attempt and drops the batch on failure.
func (p *ComposePipeline) writeWithRetry(ctx context.Context, name string, w ThreatWriter, batch []*models.ComposedThreat) {
	for {
		err := w.WriteThreats(batch)
		if err == nil {
			return
		}
		log.Errorf("Failed to write %d threats to %s: %v", len(batch), name, err)
		if ctx.Err() != nil {
			log.Warnf("Dropping %d threats for %s after shutdown", len(batch), name)
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(1 * time.Second):
		}
	}
}
