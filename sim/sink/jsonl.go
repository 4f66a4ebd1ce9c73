package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/idlesim/idlesim/sim"
)

// JSONLWriter streams records as one JSON object per line, optionally
// gzip-compressed.
type JSONLWriter struct {
	file *os.File
	buf  *bufio.Writer
	gz   *gzip.Writer
	enc  *json.Encoder
}

// NewJSONLWriter opens events.jsonl (or events.jsonl.gz) in dir.
func NewJSONLWriter(dir string, compressed bool) (*JSONLWriter, error) {
	name := "events.jsonl"
	if compressed {
		name += ".gz"
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	w := &JSONLWriter{file: f, buf: bufio.NewWriterSize(f, 1<<20)}
	if compressed {
		w.gz = gzip.NewWriter(w.buf)
		w.enc = json.NewEncoder(w.gz)
	} else {
		w.enc = json.NewEncoder(w.buf)
	}
	return w, nil
}

// Write appends a batch of records, one line each.
func (w *JSONLWriter) Write(records []*sim.Record) error {
	for _, r := range records {
		if err := w.enc.Encode(r); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *JSONLWriter) Close() error {
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return fmt.Errorf("close gzip: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return w.file.Close()
}
