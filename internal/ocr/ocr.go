// Package ocr wraps text recognition behind an interface so the scanned
// extraction path can be tested without a tesseract install.
package ocr

// Word is one recognized word with its raster-space bounding box and a
// confidence normalized to [0,1].
type Word struct {
	Text       string
	X          int
	Y          int
	Width      int
	Height     int
	Confidence float64
}

// Result is the recognition output for one page image.
type Result struct {
	Text           string
	Words          []Word
	MeanConfidence float64 // mean word confidence, 0 when no words recognized
}

// Engine recognizes text in page images. Engines are not safe for
// concurrent use; each worker creates its own and releases it with Close
// when the document's extraction record is produced.
type Engine interface {
	Recognize(image []byte) (*Result, error)
	Close() error
}

// Factory creates an Engine scoped to one document's processing window.
type Factory func() (Engine, error)
