package batch

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/gwconvert/internal/geneset"
)

// optionalFields are only written when set.
var optionalFields = map[string]bool{
	geneset.FieldDescription: true,
	geneset.FieldAccess:      true,
	geneset.FieldGroups:      true,
	geneset.FieldPubmedID:    true,
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// FormatValue renders a gene value with the fewest digits that parse back
// to the same float64.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// InvalidGenesetError is returned for a geneset that Parse would not read
// back as written.
type InvalidGenesetError struct {
	Name   string
	Reason string
}

func (e *InvalidGenesetError) Error() string {
	return fmt.Sprintf("geneset %q cannot be written: %s", e.Name, e.Reason)
}

// Check reports whether g survives a write and parse unchanged: required
// metadata is set, there is at least one value, and every value line reads
// back with the same symbol and value.
func Check(g *geneset.Geneset) error {
	if missing := g.Missing(); len(missing) > 0 {
		return &InvalidGenesetError{Name: g.Name, Reason: "missing required field(s): " + strings.Join(missing, ", ")}
	}
	if len(g.Values) == 0 {
		return &InvalidGenesetError{Name: g.Name, Reason: "no values"}
	}
	for _, gv := range g.Values {
		if reason := symbolProblem(gv.Symbol); reason != "" {
			return &InvalidGenesetError{Name: g.Name, Reason: reason}
		}
		if math.IsNaN(gv.Value) || math.IsInf(gv.Value, 0) {
			return &InvalidGenesetError{Name: g.Name, Reason: fmt.Sprintf("value of %s is not finite", gv.Symbol)}
		}
	}
	return nil
}

func symbolProblem(symbol string) string {
	switch {
	case symbol == "":
		return "empty symbol"
	case symbol != strings.TrimSpace(symbol):
		return fmt.Sprintf("symbol %q has leading or trailing space", symbol)
	case strings.ContainsAny(symbol, "\t\r\n"):
		return fmt.Sprintf("symbol %q contains a tab or line break", symbol)
	}
	if _, _, ok := parseTag(symbol); ok {
		return fmt.Sprintf("symbol %q reads as a metadata tag", symbol)
	}
	return ""
}

// Write serializes genesets in batch format. Records are separated by a
// blank line. Every geneset is checked first; nothing is written when one
// fails Check.
func Write(w io.Writer, genesets []*geneset.Geneset) error {
	for _, g := range genesets {
		if err := Check(g); err != nil {
			return err
		}
	}

	bw := bufio.NewWriter(w)
	for i, g := range genesets {
		if i > 0 {
			bw.WriteString("\n")
		}
		writeRecord(bw, g)
	}
	return bw.Flush()
}

// Format returns the batch text for genesets.
func Format(genesets []*geneset.Geneset) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, genesets); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeRecord(w *bufio.Writer, g *geneset.Geneset) {
	for _, f := range geneset.MetadataFields {
		v := lineBreaks.Replace(g.Get(f))
		if v == "" && optionalFields[f] {
			continue
		}
		w.WriteString(f)
		w.WriteString(": ")
		w.WriteString(v)
		w.WriteString("\n")
	}
	w.WriteString(ValuesMarker)
	w.WriteString("\n")
	for _, gv := range g.Values {
		w.WriteString(gv.Symbol)
		w.WriteString(",")
		w.WriteString(FormatValue(gv.Value))
		w.WriteString("\n")
	}
}
