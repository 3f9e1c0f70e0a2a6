// Package ortholog propagates gene values across species and identifier
// types through ordered symbol mapping tables.
package ortholog

import (
	"math"

	"github.com/inodb/gwconvert/internal/geneset"
)

// Mapping links a source identifier to a target identifier.
type Mapping struct {
	Source string
	Target string
}

// MapSymbols re-keys original through mappings, processed in order.
//
// A pair whose source is absent from original is ignored. A target takes the
// value of the first source mapped onto it and is only replaced by a value of
// strictly greater magnitude, so exact-magnitude ties keep the earlier value.
// Targets appear in the result in order of first assignment.
func MapSymbols(original *geneset.ValueMap, mappings []Mapping) *geneset.ValueMap {
	out := geneset.NewValueMap()
	for _, m := range mappings {
		v, ok := original.Get(m.Source)
		if !ok {
			continue
		}
		cur, assigned := out.Get(m.Target)
		if !assigned || math.Abs(v) > math.Abs(cur) {
			out.Set(m.Target, v)
		}
	}
	return out
}

// Chain applies MapSymbols once per table, feeding each result into the
// next, e.g. human symbols to MGI ids and MGI ids to Ensembl ids.
func Chain(original *geneset.ValueMap, tables ...[]Mapping) *geneset.ValueMap {
	cur := original
	for _, t := range tables {
		cur = MapSymbols(cur, t)
	}
	return cur
}
