// Package geneset defines the geneset record model shared by the batch codec,
// the tabular converters and the ortholog mapper.
package geneset

import (
	"fmt"
	"strings"
)

// Field names as they appear in batch files and CSV metadata headers.
const (
	FieldName           = "name"
	FieldAbbreviation   = "abbreviation"
	FieldDescription    = "description"
	FieldSpecies        = "species"
	FieldScoreType      = "score_type"
	FieldGeneIdentifier = "gene_identifier"
	FieldAccess         = "access"
	FieldGroups         = "groups"
	FieldPubmedID       = "pubmed_id"
)

// MetadataFields lists the metadata fields in their canonical output order.
var MetadataFields = []string{
	FieldName,
	FieldAbbreviation,
	FieldDescription,
	FieldSpecies,
	FieldScoreType,
	FieldGeneIdentifier,
	FieldAccess,
	FieldGroups,
	FieldPubmedID,
}

// RequiredFields must be non-empty for a geneset to be valid.
var RequiredFields = []string{
	FieldName,
	FieldAbbreviation,
	FieldSpecies,
	FieldScoreType,
	FieldGeneIdentifier,
}

// GeneValue pairs a gene identifier with its numeric value.
type GeneValue struct {
	Symbol string
	Value  float64
}

// Geneset is a named, typed collection of gene values.
//
// Species, GeneIdentifier, ScoreType and Access hold values from externally
// defined vocabularies and are treated as opaque strings here.
type Geneset struct {
	Name           string
	Abbreviation   string
	Description    string
	Species        string
	ScoreType      string
	GeneIdentifier string
	Access         string
	Groups         []string
	PubmedID       string

	// Values keeps file order. Duplicate symbols are kept.
	Values []GeneValue
}

// Get returns the metadata field value by name. Groups are joined with commas.
func (g *Geneset) Get(field string) string {
	switch field {
	case FieldName:
		return g.Name
	case FieldAbbreviation:
		return g.Abbreviation
	case FieldDescription:
		return g.Description
	case FieldSpecies:
		return g.Species
	case FieldScoreType:
		return g.ScoreType
	case FieldGeneIdentifier:
		return g.GeneIdentifier
	case FieldAccess:
		return g.Access
	case FieldGroups:
		return strings.Join(g.Groups, ",")
	case FieldPubmedID:
		return g.PubmedID
	}
	return ""
}

// Set assigns a metadata field by name. It returns false for unknown fields.
func (g *Geneset) Set(field, value string) bool {
	switch field {
	case FieldName:
		g.Name = value
	case FieldAbbreviation:
		g.Abbreviation = value
	case FieldDescription:
		g.Description = value
	case FieldSpecies:
		g.Species = value
	case FieldScoreType:
		g.ScoreType = value
	case FieldGeneIdentifier:
		g.GeneIdentifier = value
	case FieldAccess:
		g.Access = value
	case FieldGroups:
		g.Groups = SplitGroups(value)
	case FieldPubmedID:
		g.PubmedID = value
	default:
		return false
	}
	return true
}

// Missing returns the required fields that are empty, in RequiredFields order.
func (g *Geneset) Missing() []string {
	var missing []string
	for _, f := range RequiredFields {
		if strings.TrimSpace(g.Get(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate reports missing required metadata.
func (g *Geneset) Validate() error {
	if missing := g.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValueMap returns the geneset values as an ordered map. For duplicate
// symbols the last value wins while the first position is kept.
func (g *Geneset) ValueMap() *ValueMap {
	m := NewValueMap()
	for _, v := range g.Values {
		m.Set(v.Symbol, v.Value)
	}
	return m
}

// FileStem returns the lower-cased abbreviation with spaces replaced by
// underscores, used to name per-geneset output files.
func (g *Geneset) FileStem() string {
	return strings.ToLower(strings.ReplaceAll(g.Abbreviation, " ", "_"))
}

// SplitGroups splits a comma-separated group list, dropping empty entries.
func SplitGroups(s string) []string {
	var groups []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			groups = append(groups, p)
		}
	}
	return groups
}
