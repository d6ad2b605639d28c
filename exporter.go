package lkf

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Exporter defines an export interface.
type Exporter interface {
	Write(*Estimate) error
	Close() error
}

// CSVExporter writes each state component of an estimate along with its
// +2σ and -2σ bounds.
type CSVExporter struct {
	w      *csv.Writer
	closer io.Closer
	width  int
}

// NewCSVExporter returns a CSV exporter writing to w. The header row is made
// of each name followed by its "+2s" and "-2s" columns.
func NewCSVExporter(w io.Writer, headers []string) (*CSVExporter, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("lkf: CSV export requires at least one header")
	}
	e := &CSVExporter{w: csv.NewWriter(w), width: len(headers)}
	if c, ok := w.(io.Closer); ok {
		e.closer = c
	}
	hdr := make([]string, 0, len(headers)*3)
	for _, h := range headers {
		hdr = append(hdr, h, h+"+2s", h+"-2s")
	}
	if err := e.w.Write(hdr); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateCSVExporter creates the file at path and returns an exporter which
// closes it on Close.
func CreateCSVExporter(path string, headers []string) (*CSVExporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	e, err := NewCSVExporter(f, headers)
	if err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

// Write writes the estimate as one CSV record.
func (e *CSVExporter) Write(est *Estimate) error {
	if n := est.state.Len(); n != e.width {
		return fmt.Errorf("%w: %sstate(%d) header(%d)", ErrDimensionMismatch, dimErrMsg, n, e.width)
	}
	vals := make([]string, 0, e.width*3)
	for i := 0; i < e.width; i++ {
		x := est.state.AtVec(i)
		bound := 2 * math.Sqrt(est.covar.At(i, i))
		vals = append(vals, format(x), format(x+bound), format(x-bound))
	}
	return e.w.Write(vals)
}

// Close flushes the pending records and closes the underlying writer if it
// is an io.Closer.
func (e *CSVExporter) Close() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
