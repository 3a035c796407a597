package datarecording

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSVSink writes records as CSV rows, one column per schema field. Unset
// fields become empty cells.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	schema *Schema

	row        []string
	buffered   int
	bufferSize int
}

// NewCSVSink creates the CSV file at path and writes the header. An existing
// file is overwritten.
func NewCSVSink(path string, schema *Schema) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv output: %w", err)
	}

	s, err := NewCSVWriterSink(file, schema)
	if err != nil {
		file.Close()
		return nil, err
	}

	s.closer = file

	return s, nil
}

// NewCSVWriterSink writes CSV into w. Closing the sink does not close w.
func NewCSVWriterSink(w io.Writer, schema *Schema) (*CSVSink, error) {
	s := &CSVSink{
		w:          csv.NewWriter(w),
		schema:     schema,
		row:        make([]string, schema.Len()),
		bufferSize: 1000,
	}

	if err := s.w.Write(schema.Fields()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	return s, nil
}

// Write appends a row.
func (s *CSVSink) Write(rec *Record) error {
	for i, v := range rec.values {
		s.row[i] = formatCell(v)
	}

	if err := s.w.Write(s.row); err != nil {
		return err
	}

	s.buffered++
	if s.buffered >= s.bufferSize {
		return s.Flush()
	}

	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Flush writes the buffered rows.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	s.buffered = 0

	return s.w.Error()
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	err := s.Flush()

	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
