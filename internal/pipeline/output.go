package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/communitydata/cic36-extract/internal/config"
	"github.com/communitydata/cic36-extract/internal/structure"
)

// Writer owns a run's output directory layout:
//
//	<root>/<timestamp>/
//	├── logs/
//	│   ├── extraction_<timestamp>.log
//	│   └── failed_documents.txt
//	├── <source stem>.json            one per document
//	├── batch_summary.json
//	└── batch_summary_intermediate.json
type Writer struct {
	runDir string
	logDir string
}

// NewWriter creates the run directory under root. With dated set, each
// run gets its own timestamped subdirectory so reprocessing never
// overwrites earlier results.
func NewWriter(root string, dated bool, now time.Time) (*Writer, error) {
	runDir := root
	if dated {
		runDir = filepath.Join(root, now.Format("2006-01-02_150405"))
	}
	logDir := filepath.Join(runDir, "logs")

	if err := os.MkdirAll(logDir, config.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	return &Writer{runDir: runDir, logDir: logDir}, nil
}

func (w *Writer) RunDir() string { return w.runDir }
func (w *Writer) LogDir() string { return w.logDir }

// OpenRunLog creates the run's log file inside the logs directory.
// The caller owns closing it.
func (w *Writer) OpenRunLog(now time.Time) (*os.File, error) {
	name := fmt.Sprintf("extraction_%s.log", now.Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(w.logDir, name),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return f, nil
}

// WriteResult persists one per-document result, named after the source
// file's stem.
func (w *Writer) WriteResult(result *structure.Result) error {
	stem := strings.TrimSuffix(result.Metadata.SourceFile, filepath.Ext(result.Metadata.SourceFile))
	if stem == "" {
		return fmt.Errorf("result has no source file name")
	}
	return w.writeJSON(filepath.Join(w.runDir, stem+".json"), result)
}

// WriteSummary persists the batch summary. Intermediate snapshots go to
// a separate file so a crash mid-run still leaves usable aggregates.
func (w *Writer) WriteSummary(summary *Summary, intermediate bool) error {
	name := "batch_summary.json"
	if intermediate {
		name = "batch_summary_intermediate.json"
	}
	return w.writeJSON(filepath.Join(w.runDir, name), summary)
}

// WriteFailedDocuments lists every non-success document with its status
// in logs/failed_documents.txt, one per line.
func (w *Writer) WriteFailedDocuments(failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}

	var b strings.Builder
	for _, f := range failures {
		b.WriteString(f.SourceFile)
		b.WriteString("\t")
		b.WriteString(f.Status)
		b.WriteString("\n")
	}

	path := filepath.Join(w.logDir, "failed_documents.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o640); err != nil {
		return fmt.Errorf("failed to write failed documents list: %w", err)
	}
	return nil
}

func (w *Writer) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
