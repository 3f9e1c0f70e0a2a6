// Package output provides writers for gene values and tabular previews.
package output

import (
	"bufio"
	"io"

	"github.com/inodb/gwconvert/internal/batch"
	"github.com/inodb/gwconvert/internal/geneset"
)

// ValueHeader is the header line written by ValueWriter.WriteHeader.
const ValueHeader = "symbol\tvalue"

// ValueWriter writes gene values as tab-delimited symbol/value lines.
type ValueWriter struct {
	w       *bufio.Writer
	written bool
}

// NewValueWriter creates a new tab-delimited value writer.
func NewValueWriter(w io.Writer) *ValueWriter {
	return &ValueWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (vw *ValueWriter) WriteHeader() error {
	vw.written = true
	_, err := vw.w.WriteString(ValueHeader + "\n")
	return err
}

// WriteComment writes a "# text" line. A non-empty writer gets a blank
// line first so commented blocks stay apart.
func (vw *ValueWriter) WriteComment(text string) error {
	if vw.written {
		if err := vw.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	vw.written = true
	_, err := vw.w.WriteString("# " + text + "\n")
	return err
}

// Write writes a single symbol and value.
func (vw *ValueWriter) Write(symbol string, value float64) error {
	vw.written = true
	_, err := vw.w.WriteString(symbol + "\t" + batch.FormatValue(value) + "\n")
	return err
}

// WriteMap writes every entry of m in its insertion order.
func (vw *ValueWriter) WriteMap(m *geneset.ValueMap) error {
	for _, p := range m.Pairs() {
		if err := vw.Write(p.Symbol, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (vw *ValueWriter) Flush() error {
	return vw.w.Flush()
}
