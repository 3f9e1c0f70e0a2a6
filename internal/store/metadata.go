package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Import run kinds.
const (
	KindGenesets = "genesets"
	KindMappings = "mappings"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// StreamFingerprint identifies a non-file source such as stdin.
func StreamFingerprint(name string) FileFingerprint {
	return FileFingerprint{Path: name, Size: -1}
}

// timeLayout has a fixed width so stored times sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// Run records one import into the store.
type Run struct {
	ID         string
	Kind       string
	Source     FileFingerprint
	ImportedAt time.Time
}

func newRun(kind string, src FileFingerprint) Run {
	return Run{
		ID:         uuid.NewString(),
		Kind:       kind,
		Source:     src,
		ImportedAt: time.Now().UTC(),
	}
}

// recordRun marks run as complete. It is written after the run's rows so a
// failed import never counts as imported.
func (s *Store) recordRun(run Run) error {
	_, err := s.db.Exec(`INSERT INTO import_runs VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Source.Path, run.Source.Size, formatTime(run.Source.ModTime), formatTime(run.ImportedAt))
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// discardRun removes the rows a failed run managed to write.
func (s *Store) discardRun(run Run) {
	stmts := []string{
		`DELETE FROM gene_values WHERE geneset IN (SELECT name FROM genesets WHERE run_id=?)`,
		`DELETE FROM genesets WHERE run_id=?`,
		`DELETE FROM symbol_mappings WHERE run_id=?`,
		`DELETE FROM import_runs WHERE run_id=?`,
	}
	for _, stmt := range stmts {
		s.db.Exec(stmt, run.ID)
	}
}

// Imported reports whether a source with the same path, size and
// modification time was already imported as kind. Stream sources never match.
func (s *Store) Imported(kind string, src FileFingerprint) (bool, error) {
	if src.Size < 0 {
		return false, nil
	}
	var id string
	err := s.db.QueryRow(`SELECT run_id FROM import_runs
		WHERE kind=? AND source=? AND source_size=? AND source_modtime=?
		LIMIT 1`,
		kind, src.Path, src.Size, formatTime(src.ModTime)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query import runs: %w", err)
	}
	return true, nil
}

// Runs lists import runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, kind, source, source_size, source_modtime, imported_at
		FROM import_runs ORDER BY imported_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			modTime, imported string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Source.Path, &r.Source.Size, &modTime, &imported); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		if modTime != "" {
			r.Source.ModTime, _ = time.Parse(timeLayout, modTime)
		}
		r.ImportedAt, _ = time.Parse(timeLayout, imported)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}
	return runs, nil
}
