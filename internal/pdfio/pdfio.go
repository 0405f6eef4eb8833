// Package pdfio wraps PDF access behind a small interface so the pipeline
// stages can be exercised against fakes. The production implementation reads
// the text layer with ledongthuc/pdf after a relaxed pdfcpu validation pass.
package pdfio

// Word is a positioned text fragment on a page, in PDF user-space
// coordinates (origin bottom-left).
type Word struct {
	Text string
	X    float64
	Y    float64
	W    float64
}

// Document is an open PDF scoped to one pipeline run of one input file.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// PageText returns the extractable text layer of a page (1-indexed).
	// An empty string with nil error means the page has no text layer.
	PageText(page int) (string, error)

	// PageWords returns positioned text fragments for a page (1-indexed),
	// used for table-geometry reconstruction.
	PageWords(page int) ([]Word, error)

	// PageHasImages reports whether a page carries image XObjects.
	PageHasImages(page int) bool

	// Close releases the underlying file handle.
	Close() error
}

// Opener opens source PDFs. The pipeline holds one Opener for the run.
type Opener interface {
	Open(path string) (Document, error)
}
