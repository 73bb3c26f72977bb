// Package pipeline collects the records of a run and persists them as
// CSV and JSONL files.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

type namedWriter struct {
	format string
	OutputWriter
}

// DualWriter fans records out to a CSV file and its JSONL sibling.
type DualWriter struct {
	writers []namedWriter
}

// NewDualWriter opens both outputs; if the second fails the first is closed.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("open csv output: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("open json output: %w", err)
	}

	return &DualWriter{
		writers: []namedWriter{
			{format: "csv", OutputWriter: csvWriter},
			{format: "json", OutputWriter: jsonWriter},
		},
	}, nil
}

// Write stops at the first output that fails.
func (dw *DualWriter) Write(records []models.ProductRecord) error {
	for _, w := range dw.writers {
		if err := w.Write(records); err != nil {
			return fmt.Errorf("%s write: %w", w.format, err)
		}
	}
	return nil
}

// Close closes every output and reports all failures.
func (dw *DualWriter) Close() error {
	var errs []error
	for _, w := range dw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", w.format, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks every output.
func (dw *DualWriter) Validate() error {
	var errs []error
	for _, w := range dw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s validate: %w", w.format, err))
		}
	}
	return errors.Join(errs...)
}
