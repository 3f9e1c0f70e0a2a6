package store

import (
	"database/sql/driver"
	"fmt"

	"github.com/inodb/gwconvert/internal/ortholog"
)

// WriteMappings replaces the named mapping table with mappings, keeping
// their order. A failed write leaves the table empty and records no run.
func (s *Store) WriteMappings(table string, src FileFingerprint, mappings []ortholog.Mapping) (Run, error) {
	run := newRun(KindMappings, src)

	if _, err := s.db.Exec(`DELETE FROM symbol_mappings WHERE table_name=?`, table); err != nil {
		return Run{}, fmt.Errorf("delete mapping table %s: %w", table, err)
	}

	err := s.appendRows("symbol_mappings", len(mappings), func(i int) []driver.Value {
		m := mappings[i]
		return []driver.Value{table, int64(i), m.Source, m.Target, run.ID}
	})
	if err == nil {
		err = s.recordRun(run)
	}
	if err != nil {
		s.discardRun(run)
		return Run{}, err
	}
	return run, nil
}

// Mappings returns a stored mapping table in its original order.
func (s *Store) Mappings(table string) ([]ortholog.Mapping, error) {
	rows, err := s.db.Query(`SELECT source, target FROM symbol_mappings
		WHERE table_name=? ORDER BY seq`, table)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var out []ortholog.Mapping
	for rows.Next() {
		var m ortholog.Mapping
		if err := rows.Scan(&m.Source, &m.Target); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	if out == nil {
		known, err := s.hasMappingTable(table)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, fmt.Errorf("mapping table %q: %w", table, ErrNotFound)
		}
	}
	return out, nil
}

func (s *Store) hasMappingTable(table string) (bool, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT count(*) FROM symbol_mappings WHERE table_name=?`, table).Scan(&n); err != nil {
		return false, fmt.Errorf("query mapping tables: %w", err)
	}
	return n > 0, nil
}

// MappingTables lists stored mapping table names with their row counts.
func (s *Store) MappingTables() (map[string]int, []string, error) {
	rows, err := s.db.Query(`SELECT table_name, count(*) FROM symbol_mappings
		GROUP BY table_name ORDER BY table_name`)
	if err != nil {
		return nil, nil, fmt.Errorf("query mapping tables: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	var names []string
	for rows.Next() {
		var (
			name string
			n    int64
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, nil, fmt.Errorf("scan mapping table: %w", err)
		}
		counts[name] = int(n)
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate mapping tables: %w", err)
	}
	return counts, names, nil
}
