package ortholog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Mapping
	}{
		{
			name: "comma without header",
			in:   "TP53,Trp53\nBRCA1,Brca1\n",
			want: []Mapping{{"TP53", "Trp53"}, {"BRCA1", "Brca1"}},
		},
		{
			name: "tab with header and comments",
			in:   "# human to mouse\nfrom_gene\tto_gene\n\nTP53\tMGI:98834\r\nBRCA1\tMGI:104537\n",
			want: []Mapping{{"TP53", "MGI:98834"}, {"BRCA1", "MGI:104537"}},
		},
		{
			name: "single data row",
			in:   "TP53,Trp53",
			want: []Mapping{{"TP53", "Trp53"}},
		},
		{
			name: "header only",
			in:   "source,target\n",
			want: nil,
		},
		{
			name: "symbol-like first row is data",
			in:   "gene,target\nTP53,Trp53\n",
			want: []Mapping{{"gene", "target"}, {"TP53", "Trp53"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTable(strings.NewReader(tt.in), TableOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTable_AlgorithmFilter(t *testing.T) {
	in := "from_gene,to_gene,algorithm\nTP53,Trp53,HGNC\nTP53,Trp53b,panther\nBRCA1,Brca1\n"

	got, err := ParseTable(strings.NewReader(in), TableOptions{Algorithm: PANTHER})
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{"TP53", "Trp53b"}, {"BRCA1", "Brca1"}}, got)
}

func TestParseTable_Malformed(t *testing.T) {
	_, err := ParseTable(strings.NewReader("TP53,Trp53\nBRCA1\n"), TableOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ParseTable(strings.NewReader("TP53,\n"), TableOptions{})
	assert.Error(t, err)
}

func TestLoadTable_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte("from_gene\tto_gene\nTP53\tTrp53\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "map.tsv.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := LoadTable(path, TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{"TP53", "Trp53"}}, got)
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"HGNC", HGNC},
		{"panther", PANTHER},
		{"Ensembl Compara", EnsemblCompara},
		{"sonic-paranoid", SonicParanoid},
		{" oma ", OMA},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAlgorithm("blast")
	assert.Error(t, err)
	assert.Len(t, Algorithms, 12)
}
