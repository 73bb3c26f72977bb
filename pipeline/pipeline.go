package pipeline

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []models.ProductRecord) error
	Close() error
	Validate() error
}

// Pipeline accumulates the records of one run in arrival order. Records
// whose link does not point at a product page are rejected and counted.
type Pipeline struct {
	marker string

	mu      sync.Mutex // guards records/closed
	records models.ResultSet
	closed  bool

	metrics metrics

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline that accepts links containing marker.
func NewPipeline(marker string) *Pipeline {
	return &Pipeline{
		marker:   marker,
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}
}

// Process appends valid records. Invalid ones are dropped, never reordered.
func (p *Pipeline) Process(records ...models.ProductRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	for i := range records {
		if err := parser.ValidateRecord(&records[i], p.marker); err != nil {
			p.metrics.addValidation("missing_product_link")
			slog.Debug("record rejected", slog.Any("error", err))
			continue
		}
		p.records = append(p.records, records[i])
		p.metrics.incrementProcessed()
	}
	return nil
}

// Records returns a copy of the accumulated result set.
func (p *Pipeline) Records() models.ResultSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(models.ResultSet, len(p.records))
	copy(out, p.records)
	return out
}

// Len returns the number of accepted records.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// Rejected returns how many records failed validation, across all kinds.
func (p *Pipeline) Rejected() int {
	return p.metrics.rejected()
}

// Close prevents more submissions and stops metrics reporting.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				slog.Info("pipeline progress",
					slog.Int("processed", p.Len()),
					slog.Int("validation_errors", p.Rejected()),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) rejected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.validation {
		total += n
	}
	return total
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"validation_errors": copyValidation,
	}
}
