package batch

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gwconvert/internal/geneset"
)

const twoRecords = `# exported genesets
name: Liver Response
abbreviation: Liver Resp
description: Genes responding in liver: treated vs control
species: Mus musculus
score_type: p-value
gene_identifier: MGI
access: public
groups: lab1, lab2
pubmed-id: 12345
=values=
MGI:101,0.01
MGI:102	0.5

MGI:103,2e-3

Name: Kidney
ABBREVIATION: kid
species: Mus musculus
score_type: binary
gene_identifier: MGI
=VALUES=
MGI:201,1
`

func TestParse_TwoRecords(t *testing.T) {
	res, err := ParseString(twoRecords)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 2)
	assert.Empty(t, res.Skipped)

	g := res.Genesets[0]
	assert.Equal(t, "Liver Response", g.Name)
	assert.Equal(t, "Liver Resp", g.Abbreviation)
	assert.Equal(t, "Genes responding in liver: treated vs control", g.Description)
	assert.Equal(t, []string{"lab1", "lab2"}, g.Groups)
	assert.Equal(t, "12345", g.PubmedID)
	assert.Equal(t, []geneset.GeneValue{
		{Symbol: "MGI:101", Value: 0.01},
		{Symbol: "MGI:102", Value: 0.5},
		{Symbol: "MGI:103", Value: 0.002},
	}, g.Values)

	k := res.Genesets[1]
	assert.Equal(t, "Kidney", k.Name)
	assert.Equal(t, "kid", k.Abbreviation)
	assert.Equal(t, "binary", k.ScoreType)
	assert.Equal(t, []geneset.GeneValue{{Symbol: "MGI:201", Value: 1}}, k.Values)
}

func TestParse_ValueLineSkips(t *testing.T) {
	in := `name: A
abbreviation: a
species: human
score_type: effect
gene_identifier: symbol
=values=
TP53,1.5
BRCA1,high
EGFR
,3
KRAS,NaN
MYC,-2
`
	res, err := ParseString(in)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	assert.Equal(t, []geneset.GeneValue{
		{Symbol: "TP53", Value: 1.5},
		{Symbol: "MYC", Value: -2},
	}, res.Genesets[0].Values)

	require.Len(t, res.Skipped, 4)
	lines := make([]int, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		assert.Equal(t, SkipValueLine, s.Kind)
		assert.Equal(t, "A", s.Record)
		lines = append(lines, s.Err.Line)
	}
	assert.Equal(t, []int{8, 9, 10, 11}, lines)
	assert.Equal(t, "BRCA1,high", res.Skipped[0].Err.Text)
}

func TestParse_RecordLevelFailures(t *testing.T) {
	in := `name: No Species
abbreviation: ns
score_type: effect
gene_identifier: symbol
=values=
A,1

name: No Values
abbreviation: nv
species: human
score_type: effect
gene_identifier: symbol
=values=

name: Good
abbreviation: good
species: human
score_type: effect
gene_identifier: symbol
=values=
B,2
`
	res, err := ParseString(in)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	assert.Equal(t, "Good", res.Genesets[0].Name)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, SkipRecord, res.Skipped[0].Kind)
	assert.Equal(t, "No Species", res.Skipped[0].Record)
	assert.Equal(t, 1, res.Skipped[0].Err.Line)
	assert.Contains(t, res.Skipped[0].Err.Reason, "species")

	assert.Equal(t, SkipRecord, res.Skipped[1].Kind)
	assert.Equal(t, "No Values", res.Skipped[1].Record)
	assert.Equal(t, 8, res.Skipped[1].Err.Line)
	assert.Equal(t, "no values", res.Skipped[1].Err.Reason)
}

func TestParse_UnknownMetadataLine(t *testing.T) {
	in := `name: A
colour: blue
abbreviation: a
species: human
score_type: effect
gene_identifier: symbol
TP53,1
=values=
TP53,2
`
	res, err := ParseString(in)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	assert.Equal(t, []geneset.GeneValue{{Symbol: "TP53", Value: 2}}, res.Genesets[0].Values)

	require.Len(t, res.Skipped, 2)
	for _, s := range res.Skipped {
		assert.Equal(t, SkipMetadataLine, s.Kind)
	}
	assert.Equal(t, 2, res.Skipped[0].Err.Line)
	assert.Equal(t, 7, res.Skipped[1].Err.Line)
}

func TestParse_RepeatedTagStartsRecord(t *testing.T) {
	in := `name: First
name: Second
abbreviation: s
species: human
score_type: effect
gene_identifier: symbol
=values=
X,1
`
	res, err := ParseString(in)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	assert.Equal(t, "Second", res.Genesets[0].Name)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, SkipRecord, res.Skipped[0].Kind)
	assert.Equal(t, "First", res.Skipped[0].Record)
}

func TestParse_ColonSymbolsAreValues(t *testing.T) {
	in := "name: A\nabbreviation: a\nspecies: mouse\nscore_type: effect\ngene_identifier: MGI\n=values=\nMGI:123,1.5\nRIKEN:4930,2\n"
	res, err := ParseString(in)
	require.NoError(t, err)
	require.NotEmpty(t, res.Genesets)
	assert.Equal(t, "MGI:123", res.Genesets[0].Values[0].Symbol)
}

func TestParse_Empty(t *testing.T) {
	res, err := ParseString("")
	require.NoError(t, err)
	assert.Empty(t, res.Genesets)
	assert.Empty(t, res.Skipped)
}

func TestParse_MarkerWithoutMetadata(t *testing.T) {
	res, err := ParseString("=values=\nA,1\n")
	require.NoError(t, err)
	assert.Empty(t, res.Genesets)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, SkipMetadataLine, res.Skipped[0].Kind)
}

func TestParse_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(twoRecords))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	res, err := Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, res.Genesets, 2)
}

func TestParse_CRLF(t *testing.T) {
	in := strings.ReplaceAll(twoRecords, "\n", "\r\n")
	res, err := ParseString(in)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 2)
	assert.Equal(t, "Liver Response", res.Genesets[0].Name)
}

func TestParser_Next(t *testing.T) {
	p, err := NewParser(strings.NewReader(twoRecords))
	require.NoError(t, err)
	defer p.Close()

	var names []string
	for {
		g, err := p.Next()
		require.NoError(t, err)
		if g == nil {
			break
		}
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"Liver Response", "Kidney"}, names)

	g, err := p.Next()
	require.NoError(t, err)
	assert.Nil(t, g)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParse_ReadError(t *testing.T) {
	_, err := Parse(failingReader{})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.ErrorContains(t, err, "disk gone")
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile("/nonexistent/batch.txt")
	assert.Error(t, err)
}
