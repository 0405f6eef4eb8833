package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/communitydata/cic36-extract/internal/ocr"
	"github.com/communitydata/cic36-extract/internal/raster"
)

// scannedLineThreshold groups OCR word boxes into lines, in pixels at
// the rendering DPI.
const scannedLineThreshold = 15.0

// Scanned extracts Section A/B content from image-only pages by
// rasterizing them and running OCR. Table geometry is unreliable on
// skewed scans, so after the two-column word-box split fails the same
// prompt segmentation as the electronic fallback takes over.
type Scanned struct {
	renderer      raster.Renderer
	newEngine     ocr.Factory
	dpi           int
	minConfidence float64
}

// NewScanned creates a scanned-path extractor rendering at dpi and
// refusing OCR output under minConfidence (0..1).
func NewScanned(renderer raster.Renderer, newEngine ocr.Factory, dpi int, minConfidence float64) *Scanned {
	return &Scanned{
		renderer:      renderer,
		newEngine:     newEngine,
		dpi:           dpi,
		minConfidence: minConfidence,
	}
}

// Extract OCRs the given 1-indexed pages of the file at path. A mean
// word confidence under the minimum, or text that fails the English
// character-statistics check, aborts with ErrLowConfidence rather than
// emitting low-trust content.
func (s *Scanned) Extract(ctx context.Context, path string, pages []int) (*Record, error) {
	doc, err := s.renderer.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open for rasterization: %w", err)
	}
	defer doc.Close()

	engine, err := s.newEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to start OCR engine: %w", err)
	}
	defer engine.Close()

	record := &Record{
		Method:        MethodOCR,
		PagesSearched: pages,
	}

	var activities []Activity
	var fullText strings.Builder
	confidenceSum := 0.0
	wordCount := 0

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page < 1 || page > doc.PageCount() {
			continue
		}

		img, err := doc.Render(page, s.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize page %d: %w", page, err)
		}

		result, err := engine.Recognize(img)
		if err != nil {
			return nil, fmt.Errorf("ocr failed on page %d: %w", page, err)
		}

		fullText.WriteString(result.Text)
		fullText.WriteString("\n")

		for _, w := range result.Words {
			confidenceSum += w.Confidence
			wordCount++
		}

		if acts := s.pageActivities(result.Words); len(acts) > 0 {
			activities = append(activities, acts...)
		}
	}

	text := fullText.String()

	if wordCount == 0 {
		return nil, fmt.Errorf("no words recognized: %w", ErrLowConfidence)
	}
	record.OCRConfidence = confidenceSum / float64(wordCount)
	if record.OCRConfidence < s.minConfidence {
		return nil, fmt.Errorf("mean confidence %.2f below %.2f: %w",
			record.OCRConfidence, s.minConfidence, ErrLowConfidence)
	}
	if AssessTextQuality(text) == QualityVeryLow {
		return nil, fmt.Errorf("garbled ocr output: %w", ErrLowConfidence)
	}

	record.Activities = dedupeActivities(activities)
	if len(record.Activities) == 0 {
		record.Activities = activitiesFromText(text)
		record.UsedFallback = true
	}

	record.Beneficiaries = Beneficiaries(text)
	record.SurplusUse = SurplusUse(text)
	record.CompanyDiffers = CompanyDiffers(text)

	if IsLikelyHandwritten(text) {
		record.Handwritten = true
	}

	if ok, reason := validateSectionContent(record.Activities, text); !ok {
		record.WrongSection = true
		record.WrongSectionReason = reason
	} else if isReferentialContent(record.Activities) {
		if standalone := s.standaloneActivities(ctx, doc, engine, pages); len(standalone) > 0 {
			record.Activities = standalone
		} else {
			record.Referential = true
		}
	}

	return record, nil
}

// standaloneSearchLimit caps how many pages past the section range the
// standalone continuation-page search will OCR.
const standaloneSearchLimit = 5

// standaloneActivities looks for a standalone Section B continuation
// page after the section range. Filings whose answer box says "see
// attached" often carry the real content on an appended page with its
// own Section B heading.
func (s *Scanned) standaloneActivities(ctx context.Context, doc raster.Document, engine ocr.Engine, pages []int) []Activity {
	last := 0
	for _, p := range pages {
		if p > last {
			last = p
		}
	}
	limit := last + standaloneSearchLimit
	if limit > doc.PageCount() {
		limit = doc.PageCount()
	}
	for page := last + 1; page <= limit; page++ {
		if ctx.Err() != nil {
			return nil
		}
		img, err := doc.Render(page, s.dpi)
		if err != nil {
			continue
		}
		result, err := engine.Recognize(img)
		if err != nil {
			continue
		}
		if acts := standaloneSectionB(result.Text); len(acts) > 0 {
			return dedupeActivities(acts)
		}
	}
	return nil
}

// pageActivities tries the two-column word-box split on one OCR'd page.
func (s *Scanned) pageActivities(words []ocr.Word) []Activity {
	if len(words) == 0 {
		return nil
	}
	boxes := make([]wordBox, len(words))
	for i, w := range words {
		boxes[i] = wordBox{
			text: w.Text,
			x:    float64(w.X) + float64(w.Width)/2,
			y:    float64(w.Y),
		}
	}
	cols := splitColumns(boxes, scannedLineThreshold)
	if !cols.twoColumn {
		return nil
	}
	return columnsToActivities(stripSectionBoilerplate(cols.left), stripSectionBoilerplate(cols.right))
}
