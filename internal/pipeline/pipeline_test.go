package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/gwconvert/internal/geneset"
	"github.com/inodb/gwconvert/internal/tabular"
)

const liverCSV = "Liver samples\nGene,Score\nTP53,1.5\nBRCA1,abc\n\nEGFR,-2\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, dir, name string, sheets []string, rows map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for r, row := range rows[sheet] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sheet, cell, &values))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func testOptions() Options {
	return Options{
		IDHeader:       "Gene",
		ValueHeader:    "Score",
		Species:        "Homo sapiens",
		ScoreType:      "Effect",
		GeneIdentifier: "Gene Symbol",
		Groups:         []string{"demo"},
	}
}

func TestConvertFile_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "liver_2021.expr.csv", liverCSV)

	res, err := NewConverter(testOptions()).ConvertFile(path)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	assert.Empty(t, res.Skipped)

	g := res.Genesets[0]
	assert.Equal(t, "liver_2021", g.Name)
	assert.Equal(t, "Liver_2021", g.Abbreviation)
	assert.Equal(t, "liver_2021 Liver samples", g.Description)
	assert.Equal(t, "Homo sapiens", g.Species)
	assert.Equal(t, "Effect", g.ScoreType)
	assert.Equal(t, "Gene Symbol", g.GeneIdentifier)
	assert.Equal(t, []string{"demo"}, g.Groups)
	assert.Equal(t, []geneset.GeneValue{{Symbol: "TP53", Value: 1.5}, {Symbol: "EGFR", Value: -2}}, g.Values)
	assert.Equal(t, map[string]int{"liver_2021": 1}, res.RowSkips)
	assert.NoError(t, g.Validate())
}

func TestConvertFile_Workbook(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "study.xlsx", []string{"Heart Tissue", "Notes", "Other"}, map[string][][]any{
		"Heart Tissue": {
			{"Mouse heart", "2020"},
			{"Gene", "Score"},
			{"Trp53", 0.25},
			{"Brca1", 3},
		},
		"Notes": {
			{"free text"},
			{"more text"},
		},
		"Other": {
			{"Symbol", "Value"},
			{"Egfr", 1},
		},
	})

	core, logs := observer.New(zap.WarnLevel)
	c := NewConverter(testOptions())
	c.SetLogger(zap.New(core))

	res, err := c.ConvertFile(path)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)

	g := res.Genesets[0]
	assert.Equal(t, "study - Heart Tissue", g.Name)
	assert.Equal(t, "Study_hearttissue", g.Abbreviation)
	assert.Equal(t, "study - Heart Tissue Mouse heart,2020", g.Description)
	assert.Equal(t, []geneset.GeneValue{{Symbol: "Trp53", Value: 0.25}, {Symbol: "Brca1", Value: 3}}, g.Values)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, SheetSkip{Sheet: "Notes", Reason: "no header row found"}, res.Skipped[0])
	assert.Equal(t, "Other", res.Skipped[1].Sheet)
	assert.Contains(t, res.Skipped[1].Reason, `"Gene"`)
	assert.Equal(t, 2, logs.FilterMessage("skipping sheet").Len())
}

func TestConvertFile_DuplicateHeaders(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dups.csv", "Gene,Score,Score\nTP53,1,2\n")

	core, logs := observer.New(zap.WarnLevel)
	c := NewConverter(testOptions())
	c.SetLogger(zap.New(core))

	res, err := c.ConvertFile(path)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	// The last duplicate column wins.
	assert.Equal(t, []geneset.GeneValue{{Symbol: "TP53", Value: 2}}, res.Genesets[0].Values)

	entries := logs.FilterMessage("possible duplicate headers").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"Score"}, entries[0].ContextMap()["headers"])
}

func TestConvertFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewConverter(Options{IDHeader: "Gene"}).ConvertFile(writeFile(t, dir, "a.csv", liverCSV))
	assert.Error(t, err)

	_, err = NewConverter(testOptions()).ConvertFile(writeFile(t, dir, "a.txt", liverCSV))
	var unsupported *tabular.UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)

	_, err = NewConverter(testOptions()).ConvertFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/liver.csv", "liver"},
		{"liver.2021.xlsx", "liver"},
		{"dir/noext", "noext"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileStem(tt.path), tt.path)
	}
}

func TestConvertFiles_Order(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.csv", "b.txt", "c.csv", "d.csv", "e.csv"} {
		paths = append(paths, writeFile(t, dir, name, liverCSV))
	}

	var got []string
	var errs []int
	err := NewConverter(testOptions()).ConvertFiles(context.Background(), paths, 3, func(r WorkResult) error {
		got = append(got, filepath.Base(r.Path))
		if r.Err != nil {
			errs = append(errs, r.Seq)
			return nil
		}
		require.Len(t, r.Result.Genesets, 1)
		assert.Equal(t, FileStem(r.Path), r.Result.Genesets[0].Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.txt", "c.csv", "d.csv", "e.csv"}, got)
	assert.Equal(t, []int{1}, errs)
}

func TestConvertFiles_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.csv", "b.csv", "c.csv", "d.csv"} {
		paths = append(paths, writeFile(t, dir, name, liverCSV))
	}

	stop := errors.New("stop")
	calls := 0
	err := NewConverter(testOptions()).ConvertFiles(context.Background(), paths, 2, func(r WorkResult) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestConvertFiles_Cancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.csv", liverCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var results []WorkResult
	err := NewConverter(testOptions()).ConvertFiles(ctx, []string{path, path}, 1, func(r WorkResult) error {
		results = append(results, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestOrderedCollect_OutOfOrder(t *testing.T) {
	results := make(chan WorkResult, 4)
	for _, seq := range []int{2, 0, 3, 1} {
		results <- WorkResult{Seq: seq}
	}
	close(results)

	var seqs []int
	err := OrderedCollect(results, func(r WorkResult) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, seqs)
}
