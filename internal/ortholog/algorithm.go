package ortholog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Algorithm names an ortholog inference method. The mapper treats it as an
// opaque label; it is only used to filter mapping tables.
type Algorithm string

// Known ortholog algorithms.
const (
	HGNC           Algorithm = "HGNC"
	PANTHER        Algorithm = "PANTHER"
	Hieranoid      Algorithm = "Hieranoid"
	PhylomeDB      Algorithm = "PhylomeDB"
	OrthoInspector Algorithm = "OrthoInspector"
	InParanoid     Algorithm = "InParanoid"
	OrthoFinder    Algorithm = "OrthoFinder"
	ZFIN           Algorithm = "ZFIN"
	EnsemblCompara Algorithm = "EnsemblCompara"
	SonicParanoid  Algorithm = "SonicParanoid"
	OMA            Algorithm = "OMA"
	Xenbase        Algorithm = "Xenbase"
)

// Algorithms lists every known algorithm.
var Algorithms = []Algorithm{
	HGNC, PANTHER, Hieranoid, PhylomeDB, OrthoInspector, InParanoid,
	OrthoFinder, ZFIN, EnsemblCompara, SonicParanoid, OMA, Xenbase,
}

func algorithmKey(s string) string {
	s = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.TrimSpace(s))
	return cases.Fold().String(s)
}

// ParseAlgorithm resolves a name to a known Algorithm, ignoring case,
// spaces, hyphens and underscores.
func ParseAlgorithm(name string) (Algorithm, error) {
	key := algorithmKey(name)
	for _, a := range Algorithms {
		if algorithmKey(string(a)) == key {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown ortholog algorithm %q", name)
}

// Matches reports whether label names the same algorithm as a.
func (a Algorithm) Matches(label string) bool {
	return algorithmKey(string(a)) == algorithmKey(label)
}
