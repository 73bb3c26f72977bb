package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// Sink persists a result set under a destination name.
type Sink interface {
	Persist(records models.ResultSet, name string) error
}

// FileSink writes result sets as files under Dir. Every call rewrites the
// destination from scratch, so repeating it with the same records yields
// the same bytes.
type FileSink struct {
	Dir    string
	Format string
}

// NewFileSink returns a sink writing format ("csv", "json" or "dual") files into dir.
func NewFileSink(dir, format string) *FileSink {
	return &FileSink{Dir: dir, Format: format}
}

// Persist writes records to Dir/name, creating Dir when needed.
func (s *FileSink) Persist(records models.ResultSet, name string) (err error) {
	if name == "" {
		return fmt.Errorf("persist: empty destination name")
	}
	path := filepath.Join(s.Dir, name)

	writer, err := NewWriter(s.Format, path)
	if err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("persist %s: %w", path, closeErr))
		}
	}()

	if err := writer.Write(records); err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}

	slog.Info("records saved",
		slog.String("path", path),
		slog.String("format", s.Format),
		slog.Int("count", len(records)),
	)
	return nil
}
