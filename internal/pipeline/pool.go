package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/communitydata/cic36-extract/internal/config"
	"github.com/communitydata/cic36-extract/internal/structure"
)

// Runner drives a batch: a bounded worker pool feeds per-document
// results over a channel to a single aggregator, which owns the summary
// and all output writing. Workers share nothing mutable.
type Runner struct {
	cfg       *config.Config
	processor *Processor
	writer    *Writer
	index     *RunIndex // optional
	logger    *log.Logger
}

func NewRunner(cfg *config.Config, processor *Processor, writer *Writer, index *RunIndex, logger *log.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		processor: processor,
		writer:    writer,
		index:     index,
		logger:    logger,
	}
}

// Run processes every path and returns the batch summary. Individual
// document failures are isolated into their results; Run itself fails
// only when the run's own outputs cannot be written.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := NewSummary()

	if len(paths) == 0 {
		r.logger.Printf("no documents to process")
		summary.Finalize(time.Now())
		return summary, r.writer.WriteSummary(summary, false)
	}

	workers := r.cfg.Workers
	if workers > len(paths) {
		workers = len(paths)
	}
	r.logger.Printf("processing %d documents with %d workers", len(paths), workers)

	jobs := make(chan string)
	results := make(chan *DocumentResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- r.processor.Process(ctx, path)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	processed := 0
	for res := range results {
		processed++
		r.aggregate(summary, res)

		if processed%config.DefaultFlushInterval == 0 {
			snapshot := *summary
			snapshot.Finalize(time.Now())
			if err := r.writer.WriteSummary(&snapshot, true); err != nil {
				r.logger.Printf("intermediate summary write failed: %v", err)
			}
			r.logger.Printf("progress: %d/%d (%d success, %d failed)",
				processed, len(paths), summary.BatchInfo.Successful, summary.BatchInfo.Failed)
		}
	}

	summary.Finalize(time.Now())
	if err := r.writer.WriteSummary(summary, false); err != nil {
		return summary, err
	}
	if err := r.writer.WriteFailedDocuments(summary.Failures()); err != nil {
		return summary, err
	}

	r.logger.Printf("pipeline complete: %d documents, %d success, %d failed, %d no data, %d activities",
		summary.BatchInfo.TotalDocuments, summary.BatchInfo.Successful,
		summary.BatchInfo.Failed, summary.BatchInfo.NoData, summary.BatchInfo.TotalActivities)

	return summary, ctx.Err()
}

// aggregate folds one result into the summary and persists it. Runs on
// the aggregator goroutine only.
func (r *Runner) aggregate(summary *Summary, res *DocumentResult) {
	summary.Add(res.Result)

	name := res.Doc.Name()
	status := res.Result.ExtractionStatus
	switch {
	case res.Err != nil:
		r.logger.Printf("ERROR %s: %v", name, res.Err)
	case status == structure.StatusSuccess:
		r.logger.Printf("SUCCESS %s: %d activities in %s",
			name, len(res.Result.SectionB.Activities), res.Duration.Round(time.Millisecond))
	default:
		r.logger.Printf("%s %s", status, name)
	}

	if err := r.writer.WriteResult(res.Result); err != nil {
		r.logger.Printf("failed to write result for %s: %v", name, err)
	}
	if r.index != nil {
		if err := r.index.Record(res.Result, res.Duration); err != nil {
			r.logger.Printf("failed to index %s: %v", name, err)
		}
	}
}
