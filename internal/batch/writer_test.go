package batch

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gwconvert/internal/geneset"
)

func newGeneset(name, abbrev string, values ...geneset.GeneValue) *geneset.Geneset {
	return &geneset.Geneset{
		Name:           name,
		Abbreviation:   abbrev,
		Species:        "Homo sapiens",
		ScoreType:      "effect",
		GeneIdentifier: "symbol",
		Values:         values,
	}
}

func TestFormat_Layout(t *testing.T) {
	g := newGeneset("Heart", "heart", geneset.GeneValue{Symbol: "TP53", Value: 1.5})
	g.PubmedID = "999"

	want := `name: Heart
abbreviation: heart
species: Homo sapiens
score_type: effect
gene_identifier: symbol
pubmed_id: 999
=values=
TP53,1.5
`
	out, err := Format([]*geneset.Geneset{g})
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestFormat_SeparatesRecords(t *testing.T) {
	a := newGeneset("A", "a", geneset.GeneValue{Symbol: "X", Value: 1})
	b := newGeneset("B", "b", geneset.GeneValue{Symbol: "Y", Value: 2})

	out, err := Format([]*geneset.Geneset{a, b})
	require.NoError(t, err)
	assert.Contains(t, out, "X,1\n\nname: B\n")
}

func TestFormat_RoundTrip(t *testing.T) {
	g := newGeneset("Round Trip", "rt",
		geneset.GeneValue{Symbol: "ZNF", Value: 3},
		geneset.GeneValue{Symbol: "AAA", Value: -0.1},
		geneset.GeneValue{Symbol: "ZNF", Value: 7.65e-08},
		geneset.GeneValue{Symbol: "a,b", Value: math.MaxFloat64},
		geneset.GeneValue{Symbol: "MGI:1", Value: 1.0 / 3.0},
		geneset.GeneValue{Symbol: "tiny", Value: math.SmallestNonzeroFloat64},
	)
	g.Description = "multi\nline"
	g.Groups = []string{"g1", "g2"}
	g.Access = "private"

	text, err := Format([]*geneset.Geneset{g})
	require.NoError(t, err)
	res, err := ParseString(text)
	require.NoError(t, err)
	require.Len(t, res.Genesets, 1)
	assert.Empty(t, res.Skipped)

	got := res.Genesets[0]
	assert.Equal(t, g.Values, got.Values)
	assert.Equal(t, "multi line", got.Description)
	assert.Equal(t, g.Groups, got.Groups)
	assert.Equal(t, g.Access, got.Access)
}

func TestFormat_RoundTripSeveralRecords(t *testing.T) {
	genesets := []*geneset.Geneset{
		newGeneset("First", "f1",
			geneset.GeneValue{Symbol: "Species-like", Value: 1},
			geneset.GeneValue{Symbol: "HGNC:5", Value: 2},
			geneset.GeneValue{Symbol: "#hash", Value: 3},
		),
		newGeneset("Second", "f2", geneset.GeneValue{Symbol: "=values=", Value: -4}),
		newGeneset("Third", "f3", geneset.GeneValue{Symbol: "a b", Value: 0}),
	}

	text, err := Format(genesets)
	require.NoError(t, err)
	res, err := ParseString(text)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Genesets, len(genesets))
	for i, g := range genesets {
		assert.Equal(t, g.Name, res.Genesets[i].Name)
		assert.Equal(t, g.Values, res.Genesets[i].Values)
	}
}

func TestWrite_RejectsUnreadableGenesets(t *testing.T) {
	incomplete := &geneset.Geneset{Name: "n", Abbreviation: "a",
		Values: []geneset.GeneValue{{Symbol: "G1", Value: 1}}}

	tests := []struct {
		name   string
		g      *geneset.Geneset
		reason string
	}{
		{"missing metadata", incomplete, "species, score_type, gene_identifier"},
		{"no values", newGeneset("n", "a"), "no values"},
		{"tag-like symbol", newGeneset("n", "a",
			geneset.GeneValue{Symbol: "Name: X", Value: 1},
			geneset.GeneValue{Symbol: "G2", Value: 2}), "metadata tag"},
		{"pubmed alias symbol", newGeneset("n", "a", geneset.GeneValue{Symbol: "PMID:123", Value: 1}), "metadata tag"},
		{"tab in symbol", newGeneset("n", "a", geneset.GeneValue{Symbol: "G1\tx", Value: 1}), "tab or line break"},
		{"newline in symbol", newGeneset("n", "a", geneset.GeneValue{Symbol: "G1\nG2", Value: 1}), "tab or line break"},
		{"padded symbol", newGeneset("n", "a", geneset.GeneValue{Symbol: " G1 ", Value: 1}), "leading or trailing space"},
		{"empty symbol", newGeneset("n", "a", geneset.GeneValue{Symbol: "", Value: 1}), "empty symbol"},
		{"NaN value", newGeneset("n", "a", geneset.GeneValue{Symbol: "G1", Value: math.NaN()}), "not finite"},
		{"infinite value", newGeneset("n", "a", geneset.GeneValue{Symbol: "G1", Value: math.Inf(-1)}), "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ok := newGeneset("ok", "ok", geneset.GeneValue{Symbol: "G", Value: 1})
			err := Write(&buf, []*geneset.Geneset{ok, tt.g})

			var invalid *InvalidGenesetError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "n", invalid.Name)
			assert.Contains(t, invalid.Reason, tt.reason)
			assert.Empty(t, buf.String(), "nothing is written")
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1", FormatValue(1))
	assert.Equal(t, "-0.25", FormatValue(-0.25))
	assert.Equal(t, "0.0000000765", FormatValue(7.65e-08))
}
