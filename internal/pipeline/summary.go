package pipeline

import (
	"time"

	"github.com/communitydata/cic36-extract/internal/structure"
)

// BatchInfo aggregates per-status and per-type counts over a run.
type BatchInfo struct {
	TotalDocuments  int            `json:"total_documents"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	NoData          int            `json:"no_data"`
	StatusCounts    map[string]int `json:"status_counts"`
	ElectronicDocs  int            `json:"electronic_docs"`
	ScannedDocs     int            `json:"scanned_docs"`
	HybridDocs      int            `json:"hybrid_docs"`
	TotalActivities int            `json:"total_activities"`
	ProcessedAt     string         `json:"processed_at"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// Failure names a document that did not reach success, for the
// failed_documents.txt report and re-run selection.
type Failure struct {
	SourceFile string `json:"source_file"`
	Status     string `json:"extraction_status"`
}

// Summary is the batch_summary.json payload: the aggregate counts plus
// every per-document result. Owned by the single aggregator goroutine;
// workers never touch it.
type Summary struct {
	BatchInfo BatchInfo           `json:"batch_info"`
	Results   []*structure.Result `json:"results"`

	failures  []Failure
	startedAt time.Time
}

func NewSummary() *Summary {
	return &Summary{
		BatchInfo: BatchInfo{StatusCounts: make(map[string]int)},
		Results:   []*structure.Result{},
		startedAt: time.Now(),
	}
}

// Add folds one document result into the summary.
func (s *Summary) Add(result *structure.Result) {
	if result == nil {
		return
	}

	s.Results = append(s.Results, result)
	s.BatchInfo.TotalDocuments++
	s.BatchInfo.StatusCounts[result.ExtractionStatus]++

	switch result.ExtractionStatus {
	case structure.StatusSuccess:
		s.BatchInfo.Successful++
	case structure.StatusExtractionFailed:
		s.BatchInfo.Failed++
	default:
		s.BatchInfo.NoData++
	}

	if result.ExtractionStatus != structure.StatusSuccess {
		s.failures = append(s.failures, Failure{
			SourceFile: result.Metadata.SourceFile,
			Status:     result.ExtractionStatus,
		})
	}

	switch result.DocumentType {
	case "electronic":
		s.BatchInfo.ElectronicDocs++
	case "scanned":
		s.BatchInfo.ScannedDocs++
	case "hybrid":
		s.BatchInfo.HybridDocs++
	}

	s.BatchInfo.TotalActivities += len(result.SectionB.Activities)
}

// Finalize stamps the aggregate timing fields.
func (s *Summary) Finalize(now time.Time) {
	s.BatchInfo.ProcessedAt = now.UTC().Format(time.RFC3339)
	s.BatchInfo.DurationSeconds = now.Sub(s.startedAt).Seconds()
}

// Failures lists the documents that did not reach success, in
// processing order.
func (s *Summary) Failures() []Failure {
	return s.failures
}
