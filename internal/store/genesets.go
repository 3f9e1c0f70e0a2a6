package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/gwconvert/internal/geneset"
)

// GenesetSummary describes a stored geneset without its values.
type GenesetSummary struct {
	Name         string
	Abbreviation string
	Species      string
	ScoreType    string
	Values       int
	RunID        string
}

// WriteGenesets stores genesets imported from src, replacing any stored
// geneset with the same name. Within one call the last geneset of a name wins.
//
// The replaced genesets are deleted before the new ones are inserted, so a
// failed write loses them. The rows of the failed run are removed and no
// import run is recorded.
func (s *Store) WriteGenesets(src FileFingerprint, genesets []*geneset.Geneset) (Run, error) {
	run := newRun(KindGenesets, src)
	if err := s.writeGenesets(run, genesets); err != nil {
		s.discardRun(run)
		return Run{}, err
	}
	if err := s.recordRun(run); err != nil {
		s.discardRun(run)
		return Run{}, err
	}
	return run, nil
}

func (s *Store) writeGenesets(run Run, genesets []*geneset.Geneset) error {
	last := make(map[string]int, len(genesets))
	for i, g := range genesets {
		last[g.Name] = i
	}
	unique := make([]*geneset.Geneset, 0, len(last))
	for i, g := range genesets {
		if last[g.Name] == i {
			unique = append(unique, g)
		}
	}

	// Deletes commit before the inserts: DuckDB rejects re-inserting a
	// primary key deleted in the same transaction.
	for _, g := range unique {
		if _, err := s.db.Exec(`DELETE FROM gene_values WHERE geneset=?`, g.Name); err != nil {
			return fmt.Errorf("delete values of %s: %w", g.Name, err)
		}
		if _, err := s.db.Exec(`DELETE FROM genesets WHERE name=?`, g.Name); err != nil {
			return fmt.Errorf("delete geneset %s: %w", g.Name, err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, g := range unique {
		if _, err := tx.Exec(`INSERT INTO genesets VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.Name, g.Abbreviation, g.Description, g.Species, g.ScoreType,
			g.GeneIdentifier, g.Access, strings.Join(g.Groups, ","), g.PubmedID, run.ID,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert geneset %s: %w", g.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit genesets: %w", err)
	}

	type valueRow struct {
		name string
		seq  int64
		gv   geneset.GeneValue
	}
	var rows []valueRow
	for _, g := range unique {
		for i, gv := range g.Values {
			rows = append(rows, valueRow{g.Name, int64(i), gv})
		}
	}
	return s.appendRows("gene_values", len(rows), func(i int) []driver.Value {
		r := rows[i]
		return []driver.Value{r.name, r.seq, r.gv.Symbol, r.gv.Value}
	})
}

// Genesets lists stored genesets by name.
func (s *Store) Genesets() ([]GenesetSummary, error) {
	rows, err := s.db.Query(`SELECT g.name, g.abbreviation, g.species, g.score_type, g.run_id,
		(SELECT count(*) FROM gene_values v WHERE v.geneset = g.name)
		FROM genesets g ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("query genesets: %w", err)
	}
	defer rows.Close()

	var out []GenesetSummary
	for rows.Next() {
		var gs GenesetSummary
		var n int64
		if err := rows.Scan(&gs.Name, &gs.Abbreviation, &gs.Species, &gs.ScoreType, &gs.RunID, &n); err != nil {
			return nil, fmt.Errorf("scan geneset: %w", err)
		}
		gs.Values = int(n)
		out = append(out, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genesets: %w", err)
	}
	return out, nil
}

// Geneset loads a stored geneset with its values in original order.
func (s *Store) Geneset(name string) (*geneset.Geneset, error) {
	var (
		g      geneset.Geneset
		groups string
	)
	err := s.db.QueryRow(`SELECT name, abbreviation, description, species, score_type,
		gene_identifier, access, groups, pubmed_id
		FROM genesets WHERE name=?`, name).Scan(
		&g.Name, &g.Abbreviation, &g.Description, &g.Species, &g.ScoreType,
		&g.GeneIdentifier, &g.Access, &groups, &g.PubmedID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("geneset %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query geneset: %w", err)
	}
	g.Groups = geneset.SplitGroups(groups)

	rows, err := s.db.Query(`SELECT symbol, value FROM gene_values WHERE geneset=? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("query gene values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gv geneset.GeneValue
		if err := rows.Scan(&gv.Symbol, &gv.Value); err != nil {
			return nil, fmt.Errorf("scan gene value: %w", err)
		}
		g.Values = append(g.Values, gv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene values: %w", err)
	}
	return &g, nil
}
