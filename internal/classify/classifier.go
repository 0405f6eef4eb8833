// Package classify decides whether a PDF carries an extractable text
// layer or is a scan that needs OCR, by sampling page text density.
package classify

import (
	"fmt"
	"strings"

	"github.com/communitydata/cic36-extract/internal/document"
	"github.com/communitydata/cic36-extract/internal/pdfio"
)

// expectedGlyphsPerPage is the glyph count of a typical filled form
// page. Density is measured against this baseline.
const expectedGlyphsPerPage = 170

// Classifier samples pages of a document and labels it electronic,
// scanned, or hybrid.
type Classifier struct {
	samplePages         int
	confidenceThreshold float64
}

// NewClassifier creates a classifier sampling at most samplePages pages
// and treating a page as text-bearing when its density reaches
// confidenceThreshold.
func NewClassifier(samplePages int, confidenceThreshold float64) *Classifier {
	return &Classifier{
		samplePages:         samplePages,
		confidenceThreshold: confidenceThreshold,
	}
}

// Classify inspects doc and fills in the classification fields of out:
// Label, Confidence, PageCount, TextPages and ImagePages.
func (c *Classifier) Classify(doc pdfio.Document, out *document.Document) error {
	pageCount := doc.PageCount()
	if pageCount == 0 {
		return fmt.Errorf("document has no pages")
	}
	out.PageCount = pageCount

	sample := samplePages(pageCount, c.samplePages)

	textPages := make([]int, 0, len(sample))
	imagePages := make([]int, 0, len(sample))

	for _, page := range sample {
		text, err := doc.PageText(page)
		if err != nil {
			// An unreadable text layer counts as an image page.
			imagePages = append(imagePages, page)
			continue
		}
		if pageDensity(text) >= c.confidenceThreshold {
			textPages = append(textPages, page)
		} else {
			imagePages = append(imagePages, page)
		}
	}

	out.TextPages = textPages
	out.ImagePages = imagePages

	total := len(sample)
	switch {
	case len(textPages) == total:
		out.Label = document.Electronic
		out.Confidence = 1.0
	case len(imagePages) == total:
		out.Label = document.Scanned
		out.Confidence = 1.0
	default:
		out.Label = document.Hybrid
		majority := len(textPages)
		if len(imagePages) > majority {
			majority = len(imagePages)
		}
		out.Confidence = float64(majority) / float64(total)
	}

	return nil
}

// pageDensity measures extracted text against the glyph count of a
// typical form page. Whitespace does not count.
func pageDensity(text string) float64 {
	glyphs := 0
	for _, r := range text {
		if !isSpace(r) {
			glyphs++
		}
	}
	return float64(glyphs) / expectedGlyphsPerPage
}

func isSpace(r rune) bool {
	return strings.ContainsRune(" \t\n\r\f\v", r)
}

// samplePages picks up to max pages spread evenly across the document,
// always including the first and last page. Pages are 1-indexed and
// returned in ascending order.
func samplePages(pageCount, max int) []int {
	if max <= 0 || pageCount <= max {
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	pages := make([]int, 0, max)
	seen := make(map[int]bool, max)
	step := float64(pageCount-1) / float64(max-1)
	for i := 0; i < max; i++ {
		page := 1 + int(float64(i)*step+0.5)
		if page > pageCount {
			page = pageCount
		}
		if !seen[page] {
			seen[page] = true
			pages = append(pages, page)
		}
	}
	return pages
}
