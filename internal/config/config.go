package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultWorkers             = 6
	DefaultOCRDPI              = 300
	DefaultMaxPagesToSearch    = 15
	DefaultMaxSectionPages     = 6
	DefaultConfidenceThreshold = 0.3
	DefaultMinOCRConfidence    = 0.3
	DefaultMinCharsPerPage     = 50
	DefaultSamplePages         = 12
	DefaultLogLevel            = "info"
	DefaultMaxFileSize         = 100 * 1024 * 1024 // 100MB
	DefaultDocumentTimeout     = 2 * time.Minute
	DefaultFlushInterval       = 50

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the CIC36 extraction pipeline
type Config struct {
	// Input/output configuration
	InputPath string // PDF file or directory of PDFs
	OutputDir string // root directory for run output
	DatedRun  bool   // create a timestamped subdirectory per run

	// Concurrency configuration
	Workers         int
	DocumentTimeout time.Duration

	// Classification configuration
	SamplePages         int     // maximum pages sampled per document
	MinCharsPerPage     int     // chars needed for a page to count as text-bearing
	ConfidenceThreshold float64 // text-density threshold for a text-bearing page

	// Section location configuration
	MaxPagesToSearch int // horizon for the CIC36 header scan
	MaxSectionPages  int // hard cap on located-section length

	// OCR configuration
	OCRDPI           int
	MinOCRConfidence float64 // below this the scanned path aborts

	// Application configuration
	Version     string
	LogLevel    string
	MaxFileSize int64 // maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		InputPath:           currentDir,
		OutputDir:           filepath.Join(currentDir, "output"),
		DatedRun:            true,
		Workers:             DefaultWorkers,
		DocumentTimeout:     DefaultDocumentTimeout,
		SamplePages:         DefaultSamplePages,
		MinCharsPerPage:     DefaultMinCharsPerPage,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxPagesToSearch:    DefaultMaxPagesToSearch,
		MaxSectionPages:     DefaultMaxSectionPages,
		OCRDPI:              DefaultOCRDPI,
		MinOCRConfidence:    DefaultMinOCRConfidence,
		Version:             "1.0.0",
		LogLevel:            DefaultLogLevel,
		MaxFileSize:         DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.InputPath != "" {
		if expandedPath, err := filepath.Abs(cfg.InputPath); err == nil {
			cfg.InputPath = expandedPath
		}
	}
	if cfg.OutputDir != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDir); err == nil {
			cfg.OutputDir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("CIC36")
	viper.AutomaticEnv()

	viper.SetDefault("input", cfg.InputPath)
	viper.SetDefault("output", cfg.OutputDir)
	viper.SetDefault("dated", cfg.DatedRun)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("timeout", cfg.DocumentTimeout)
	viper.SetDefault("dpi", cfg.OCRDPI)
	viper.SetDefault("horizon", cfg.MaxPagesToSearch)
	viper.SetDefault("threshold", cfg.ConfidenceThreshold)
	viper.SetDefault("minocrconfidence", cfg.MinOCRConfidence)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("input", cfg.InputPath, "Input PDF file or directory of PDF files")
	pflag.String("output", cfg.OutputDir, "Root directory for run output")
	pflag.Bool("dated", cfg.DatedRun, "Create a timestamped subdirectory per run")
	pflag.Int("workers", cfg.Workers, "Number of concurrent document workers")
	pflag.Duration("timeout", cfg.DocumentTimeout, "Per-document processing timeout")
	pflag.Int("dpi", cfg.OCRDPI, "Rasterization DPI for OCR")
	pflag.Int("horizon", cfg.MaxPagesToSearch, "Maximum pages scanned for the CIC36 header")
	pflag.Float64("threshold", cfg.ConfidenceThreshold, "Text-density threshold for classification")
	pflag.Float64("minocrconfidence", cfg.MinOCRConfidence, "Minimum mean OCR confidence (0-1)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("input", pflag.Lookup("input"))
	_ = viper.BindPFlag("output", pflag.Lookup("output"))
	_ = viper.BindPFlag("dated", pflag.Lookup("dated"))
	_ = viper.BindPFlag("workers", pflag.Lookup("workers"))
	_ = viper.BindPFlag("timeout", pflag.Lookup("timeout"))
	_ = viper.BindPFlag("dpi", pflag.Lookup("dpi"))
	_ = viper.BindPFlag("horizon", pflag.Lookup("horizon"))
	_ = viper.BindPFlag("threshold", pflag.Lookup("threshold"))
	_ = viper.BindPFlag("minocrconfidence", pflag.Lookup("minocrconfidence"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ncic36-extract - Batch extraction of CIC36 form data from incorporation PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input=/data/pdfs --output=/data/output             # batch mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input=12345678_newinc_2023-06-16.pdf               # single file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input=/data/pdfs --workers=2 --dpi=200             # memory-constrained host\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  CIC36_INPUT            Input file or directory\n")
		fmt.Fprintf(os.Stderr, "  CIC36_OUTPUT           Output root directory\n")
		fmt.Fprintf(os.Stderr, "  CIC36_WORKERS          Worker count\n")
		fmt.Fprintf(os.Stderr, "  CIC36_DPI              OCR rasterization DPI\n")
		fmt.Fprintf(os.Stderr, "  CIC36_HORIZON          Section-search page horizon\n")
		fmt.Fprintf(os.Stderr, "  CIC36_THRESHOLD        Classification confidence threshold\n")
		fmt.Fprintf(os.Stderr, "  CIC36_LOGLEVEL         Log level\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.InputPath = viper.GetString("input")
	cfg.OutputDir = viper.GetString("output")
	cfg.DatedRun = viper.GetBool("dated")
	cfg.Workers = viper.GetInt("workers")
	cfg.DocumentTimeout = viper.GetDuration("timeout")
	cfg.OCRDPI = viper.GetInt("dpi")
	cfg.MaxPagesToSearch = viper.GetInt("horizon")
	cfg.ConfidenceThreshold = viper.GetFloat64("threshold")
	cfg.MinOCRConfidence = viper.GetFloat64("minocrconfidence")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input path cannot be empty")
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.OCRDPI < 72 || c.OCRDPI > 1200 {
		return fmt.Errorf("dpi must be between 72 and 1200, got %d", c.OCRDPI)
	}

	if c.MaxPagesToSearch < 1 {
		return errors.New("section-search horizon must be at least 1 page")
	}

	if c.MaxSectionPages < 1 {
		return errors.New("section page cap must be at least 1")
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}

	if c.MinOCRConfidence < 0 || c.MinOCRConfidence > 1 {
		return fmt.Errorf("minimum OCR confidence must be in [0,1], got %v", c.MinOCRConfidence)
	}

	if c.DocumentTimeout <= 0 {
		return errors.New("document timeout must be positive")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Input: %s, Output: %s, Workers: %d, DPI: %d, Horizon: %d, Threshold: %.2f, LogLevel: %s}",
		c.InputPath, c.OutputDir, c.Workers, c.OCRDPI, c.MaxPagesToSearch, c.ConfidenceThreshold, c.LogLevel)
}
