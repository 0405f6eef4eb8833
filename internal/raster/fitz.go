package raster

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements Renderer on MuPDF via go-fitz.
type FitzRenderer struct{}

// NewFitzRenderer creates the production page renderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open opens a PDF for rasterization.
func (r *FitzRenderer) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rasterization: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc    *fitz.Document
	closed bool
}

func (d *fitzDocument) Render(page, dpi int) ([]byte, error) {
	if d.closed {
		return nil, fmt.Errorf("render document is closed")
	}
	if page < 1 || page > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, d.doc.NumPage())
	}

	// go-fitz pages are 0-indexed.
	img, err := d.doc.ImageDPI(page-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d at %d dpi: %w", page, dpi, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d raster: %w", page, err)
	}

	return buf.Bytes(), nil
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.doc.Close()
}
