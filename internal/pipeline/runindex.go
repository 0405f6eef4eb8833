package pipeline

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/communitydata/cic36-extract/internal/structure"
)

// RunIndex is a sqlite index of per-document outcomes, written alongside
// the JSON results. It exists for selection queries over large runs,
// such as re-running only the failures or counting statuses, without parsing
// thousands of result files.
type RunIndex struct {
	db *sql.DB
}

const runIndexSchema = `
CREATE TABLE IF NOT EXISTS results (
	source_file    TEXT PRIMARY KEY,
	company_number TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	document_type  TEXT NOT NULL DEFAULT '',
	cic36_page     INTEGER NOT NULL DEFAULT 0,
	page_count     INTEGER NOT NULL DEFAULT 0,
	activity_count INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	extracted_at   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
`

// OpenRunIndex opens (creating if needed) the index database at path.
func OpenRunIndex(path string) (*RunIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}

	// One writer at a time; the aggregator goroutine is the only client.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(runIndexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run index schema: %w", err)
	}

	return &RunIndex{db: db}, nil
}

// Record upserts one document's outcome. Reprocessing a document in a
// later run replaces its row; the JSON results stay append-only, the
// index reflects the latest state.
func (i *RunIndex) Record(result *structure.Result, duration time.Duration) error {
	_, err := i.db.Exec(`
		INSERT INTO results
			(source_file, company_number, status, document_type,
			 cic36_page, page_count, activity_count, duration_ms, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_file) DO UPDATE SET
			company_number = excluded.company_number,
			status         = excluded.status,
			document_type  = excluded.document_type,
			cic36_page     = excluded.cic36_page,
			page_count     = excluded.page_count,
			activity_count = excluded.activity_count,
			duration_ms    = excluded.duration_ms,
			extracted_at   = excluded.extracted_at`,
		result.Metadata.SourceFile,
		result.CompanyNumber,
		result.ExtractionStatus,
		result.DocumentType,
		result.Metadata.CIC36Page,
		result.Metadata.DocumentPageCount,
		len(result.SectionB.Activities),
		duration.Milliseconds(),
		result.Metadata.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", result.Metadata.SourceFile, err)
	}
	return nil
}

// FailedDocuments returns the source files whose latest status is not
// success, ordered by filename.
func (i *RunIndex) FailedDocuments() ([]string, error) {
	rows, err := i.db.Query(
		`SELECT source_file FROM results WHERE status != ? ORDER BY source_file`,
		structure.StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed documents: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan failed document row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// StatusCounts returns the per-status document counts.
func (i *RunIndex) StatusCounts() (map[string]int, error) {
	rows, err := i.db.Query(`SELECT status, COUNT(*) FROM results GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (i *RunIndex) Close() error {
	return i.db.Close()
}
