// Package document holds the identity of one input filing: its source path,
// the company metadata parsed from the filename, and the classification the
// pipeline assigns before choosing an extraction path.
package document

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FilenameFormat identifies which naming convention a source file follows.
type FilenameFormat string

const (
	FormatModern  FilenameFormat = "modern"  // {company}_newinc_{YYYY-MM-DD}.pdf
	FormatPartial FilenameFormat = "partial" // leading company number only
	FormatLegacy  FilenameFormat = "legacy"  // no metadata in the filename
)

// Classification labels assigned by the classifier.
type Classification string

const (
	Electronic Classification = "electronic"
	Scanned    Classification = "scanned"
	Hybrid     Classification = "hybrid"
	Unknown    Classification = "unknown"
)

var (
	modernNameRe  = regexp.MustCompile(`^(\d+)_newinc_(\d{4}-\d{2}-\d{2})$`)
	partialNameRe = regexp.MustCompile(`^(\d{6,8})`)
)

// Identity is the metadata recoverable from a source filename.
type Identity struct {
	CompanyNumber     string
	IncorporationDate string // YYYY-MM-DD, empty for partial/legacy names
	Format            FilenameFormat
}

// ParseFilename extracts the company number and incorporation date from a
// source filename. Two conventions are accepted:
// {company}_newinc_{date}.pdf and a bare leading company number; anything
// else is tagged legacy with no metadata.
func ParseFilename(filename string) Identity {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if m := modernNameRe.FindStringSubmatch(stem); m != nil {
		return Identity{
			CompanyNumber:     m[1],
			IncorporationDate: m[2],
			Format:            FormatModern,
		}
	}

	if m := partialNameRe.FindStringSubmatch(stem); m != nil {
		return Identity{
			CompanyNumber: m[1],
			Format:        FormatPartial,
		}
	}

	return Identity{Format: FormatLegacy}
}

// Document is one input filing. Immutable once classified.
type Document struct {
	Path      string
	Identity  Identity
	PageCount int

	Label      Classification
	Confidence float64

	// Per-page detail from classification, needed for the hybrid
	// per-page extraction dispatch. 1-indexed page numbers.
	TextPages  []int
	ImagePages []int
}

// New builds a Document for a source path with its filename parsed.
func New(path string) *Document {
	return &Document{
		Path:     path,
		Identity: ParseFilename(path),
	}
}

// Name returns the base filename of the source document.
func (d *Document) Name() string {
	return filepath.Base(d.Path)
}

// IsImagePage reports whether classification marked a page as image-only.
func (d *Document) IsImagePage(page int) bool {
	for _, p := range d.ImagePages {
		if p == page {
			return true
		}
	}
	return false
}
