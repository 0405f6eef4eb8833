// Package raster renders PDF pages to images for the OCR path. Rendering is
// the memory-heavy part of scanned extraction, so render handles are scoped
// to one document and released as soon as its pages have been recognized.
package raster

// Document renders pages of one open PDF.
type Document interface {
	// Render rasterizes a page (1-indexed) at the given DPI and returns
	// PNG-encoded bytes.
	Render(page, dpi int) ([]byte, error)

	// PageCount returns the number of pages.
	PageCount() int

	// Close releases the render handle and any decoded page buffers.
	Close() error
}

// Renderer opens PDFs for rasterization.
type Renderer interface {
	Open(path string) (Document, error)
}
