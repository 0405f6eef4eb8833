package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/communitydata/cic36-extract/internal/config"
	"github.com/communitydata/cic36-extract/internal/ocr"
	"github.com/communitydata/cic36-extract/internal/pdfio"
	"github.com/communitydata/cic36-extract/internal/pipeline"
	"github.com/communitydata/cic36-extract/internal/raster"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	cfg.Version = version

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	paths, err := collectInputs(cfg.InputPath)
	if err != nil {
		return err
	}

	now := time.Now()
	writer, err := pipeline.NewWriter(cfg.OutputDir, cfg.DatedRun, now)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg, writer, now)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Printf("cic36-extract %s (build %s, commit %s)", version, buildTime, gitCommit)
	logger.Printf("%s", cfg)
	logger.Printf("writing results to %s", writer.RunDir())

	index, err := pipeline.OpenRunIndex(filepath.Join(writer.RunDir(), "results.db"))
	if err != nil {
		// The index is a convenience layer over the JSON results; a
		// run without it is still a complete run.
		logger.Printf("run index unavailable: %v", err)
		index = nil
	} else {
		defer index.Close()
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	processor := pipeline.NewProcessor(cfg,
		pdfio.NewFileOpener(cfg.MaxFileSize),
		raster.NewFitzRenderer(),
		ocr.NewTesseractEngine,
		logger)

	runner := pipeline.NewRunner(cfg, processor, writer, index, logger)
	summary, err := runner.Run(ctx, paths)
	if err != nil {
		return err
	}

	printSummary(summary, writer.RunDir())
	return nil
}

// collectInputs resolves the input path to the list of PDFs to process:
// the file itself in single-file mode, or every PDF in the directory.
func collectInputs(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("cannot read input path: %w", err)
	}

	if !info.IsDir() {
		return []string{input}, nil
	}

	paths, err := pdfio.FindPDFs(input)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", input)
	}
	return paths, nil
}

// setupLogging tees the run log between stderr and the run's log file.
func setupLogging(cfg *config.Config, writer *pipeline.Writer, now time.Time) (*log.Logger, func(), error) {
	logFile, err := writer.OpenRunLog(now)
	if err != nil {
		return nil, nil, err
	}

	flags := log.LstdFlags
	if cfg.IsDebug() {
		flags |= log.Lshortfile
	}
	logger := log.New(io.MultiWriter(os.Stderr, logFile), "", flags)
	return logger, func() { logFile.Close() }, nil
}

// signalContext cancels the batch on SIGINT or SIGTERM. In-flight
// documents finish; the feeder stops handing out new ones.
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-signalCh
		if !ok {
			return
		}
		logger.Printf("received signal %s, finishing in-flight documents", sig)
		cancel()
	}()

	return ctx, func() {
		signal.Stop(signalCh)
		close(signalCh)
		cancel()
	}
}

func printSummary(summary *pipeline.Summary, runDir string) {
	info := summary.BatchInfo
	fmt.Printf("\nProcessed %d documents in %.1fs\n", info.TotalDocuments, info.DurationSeconds)
	fmt.Printf("  success:            %d\n", info.Successful)
	fmt.Printf("  no data:            %d\n", info.NoData)
	fmt.Printf("  failed:             %d\n", info.Failed)
	fmt.Printf("  activities found:   %d\n", info.TotalActivities)
	fmt.Printf("  electronic/scanned/hybrid: %d/%d/%d\n",
		info.ElectronicDocs, info.ScannedDocs, info.HybridDocs)
	fmt.Printf("Results written to %s\n", runDir)
}
