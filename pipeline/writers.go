package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// productColumns is the CSV header, in ProductRecord field order.
var productColumns = []string{"title", "price", "link"}

// NewWriter returns the writer for format ("csv", "json" or "dual"). Dual
// output puts the JSONL copy next to filename with a .json extension.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		return NewDualWriter(filename, strings.TrimSuffix(filename, ".csv")+".json")
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// productFile is a truncated, buffered output file shared by the record
// encoders below.
type productFile struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
}

func createProductFile(filename string) (*productFile, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	return &productFile{path: filename, file: f, buf: bufio.NewWriter(f)}, nil
}

// emit runs encode for every record under the file lock and flushes once.
func (pf *productFile) emit(records []models.ProductRecord, encode func(models.ProductRecord) error, flush func() error) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	for _, r := range records {
		if err := encode(r); err != nil {
			return fmt.Errorf("encode %q: %w", r.Link, err)
		}
	}
	if flush != nil {
		if err := flush(); err != nil {
			return err
		}
	}
	if err := pf.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", pf.path, err)
	}
	return nil
}

func (pf *productFile) close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return errors.Join(pf.buf.Flush(), pf.file.Close())
}

func (pf *productFile) size() (int64, error) {
	info, err := pf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", pf.path, err)
	}
	return info.Size(), nil
}

// CSVWriter writes one row per record with the zero sentinel rendered as "0".
type CSVWriter struct {
	*productFile
	rows *csv.Writer
}

// NewCSVWriter truncates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	pf, err := createProductFile(filename)
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{productFile: pf, rows: csv.NewWriter(pf.buf)}
	if err := pf.emit(nil, nil, func() error { return cw.writeRow(productColumns) }); err != nil {
		pf.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

func (cw *CSVWriter) writeRow(row []string) error {
	if err := cw.rows.Write(row); err != nil {
		return err
	}
	cw.rows.Flush()
	return cw.rows.Error()
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []models.ProductRecord) error {
	return cw.emit(records, func(r models.ProductRecord) error {
		return cw.rows.Write([]string{r.Title, r.Price.String(), r.Link})
	}, func() error {
		cw.rows.Flush()
		return cw.rows.Error()
	})
}

// Close flushes and closes the file.
func (cw *CSVWriter) Close() error {
	return cw.close()
}

// Validate ensures at least the header reached the file.
func (cw *CSVWriter) Validate() error {
	n, err := cw.size()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("csv file %s is empty", cw.path)
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	*productFile
	enc *json.Encoder
}

// NewJSONWriter truncates filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	pf, err := createProductFile(filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{productFile: pf, enc: json.NewEncoder(pf.buf)}, nil
}

// Write appends one JSON line per record.
func (jw *JSONWriter) Write(records []models.ProductRecord) error {
	return jw.emit(records, func(r models.ProductRecord) error {
		return jw.enc.Encode(r)
	}, nil)
}

// Close flushes and closes the file.
func (jw *JSONWriter) Close() error {
	return jw.close()
}

// Validate only checks the file is reachable; an empty result set
// legitimately yields an empty file.
func (jw *JSONWriter) Validate() error {
	_, err := jw.size()
	return err
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
