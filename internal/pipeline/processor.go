// Package pipeline runs the classify → locate → extract → structure
// sequence over documents, in a bounded worker pool with per-document
// failure isolation: one bad PDF produces one failed result, never a
// stopped batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/communitydata/cic36-extract/internal/classify"
	"github.com/communitydata/cic36-extract/internal/config"
	"github.com/communitydata/cic36-extract/internal/document"
	"github.com/communitydata/cic36-extract/internal/extract"
	"github.com/communitydata/cic36-extract/internal/locate"
	"github.com/communitydata/cic36-extract/internal/ocr"
	"github.com/communitydata/cic36-extract/internal/pdfio"
	"github.com/communitydata/cic36-extract/internal/raster"
	"github.com/communitydata/cic36-extract/internal/structure"
)

// Processor runs one document end-to-end. Each worker owns its
// document's full lifecycle; nothing here is shared between concurrent
// calls.
type Processor struct {
	cfg        *config.Config
	opener     pdfio.Opener
	renderer   raster.Renderer
	ocrFactory ocr.Factory

	classifier *classify.Classifier
	locator    *locate.Locator
	electronic *extract.Electronic
	scanned    *extract.Scanned
	structurer *structure.Structurer
	logger     *log.Logger
}

// NewProcessor wires the pipeline stages from configuration.
func NewProcessor(cfg *config.Config, opener pdfio.Opener, renderer raster.Renderer, ocrFactory ocr.Factory, logger *log.Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		opener:     opener,
		renderer:   renderer,
		ocrFactory: ocrFactory,
		classifier: classify.NewClassifier(cfg.SamplePages, cfg.ConfidenceThreshold),
		locator:    locate.NewLocator(cfg.MaxPagesToSearch, cfg.MaxSectionPages),
		electronic: extract.NewElectronic(),
		scanned:    extract.NewScanned(renderer, ocrFactory, cfg.OCRDPI, cfg.MinOCRConfidence),
		structurer: structure.NewStructurer(),
		logger:     logger,
	}
}

// DocumentResult is what one worker hands the aggregator: the terminal
// structured result plus the processing error, if any, for the log.
type DocumentResult struct {
	Doc      *document.Document
	Result   *structure.Result
	Duration time.Duration

	// Err is the hard processing error (unopenable file, panic,
	// timeout). Extraction outcomes like low OCR confidence are not
	// errors; they are statuses on Result.
	Err error
}

// Process runs one document. It always returns a result, with panics and
// errors folded into extraction_failed, so the batch never loses a document
// silently.
func (p *Processor) Process(ctx context.Context, path string) *DocumentResult {
	start := time.Now()
	doc := document.New(path)
	out := &DocumentResult{Doc: doc}

	func() {
		defer func() {
			if r := recover(); r != nil {
				out.Err = fmt.Errorf("panic while processing %s: %v", doc.Name(), r)
				out.Result = nil
			}
		}()
		out.Result, out.Err = p.run(ctx, doc)
	}()

	if out.Result == nil {
		out.Result = p.structurer.Build(doc, nil, nil, out.Err)
	}
	out.Duration = time.Since(start)
	return out
}

func (p *Processor) run(ctx context.Context, doc *document.Document) (*structure.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DocumentTimeout)
	defer cancel()

	pdfDoc, err := p.opener.Open(doc.Path)
	if err != nil {
		err = fmt.Errorf("open failed: %w", err)
		return p.structurer.Build(doc, nil, nil, err), err
	}
	defer pdfDoc.Close()

	if err := p.classifier.Classify(pdfDoc, doc); err != nil {
		err = fmt.Errorf("classification failed: %w", err)
		return p.structurer.Build(doc, nil, nil, err), err
	}
	p.logger.Printf("%s: classified %s (confidence %.2f, %d pages)",
		doc.Name(), doc.Label, doc.Confidence, doc.PageCount)

	src := p.newPageSource(doc, pdfDoc)
	defer src.Close()

	section, err := p.locator.Find(ctx, doc.PageCount, src.Text)
	if err != nil {
		err = fmt.Errorf("section search failed: %w", err)
		return p.structurer.Build(doc, nil, nil, err), err
	}
	if section == nil {
		p.logger.Printf("%s: no CIC36 header within the first %d pages",
			doc.Name(), p.cfg.MaxPagesToSearch)
		return p.structurer.Build(doc, nil, nil, nil), nil
	}
	p.logger.Printf("%s: located section on pages %d-%d (%s confidence, %q)",
		doc.Name(), section.Start, section.End, section.Confidence, section.Pattern)

	rec, extractErr := p.extractSection(ctx, doc, pdfDoc, section)
	if extractErr != nil {
		p.logger.Printf("%s: extraction aborted: %v", doc.Name(), extractErr)
	}
	if rec != nil {
		if rec.Referential {
			p.logger.Printf("%s: answers reference attached pages; manual review recommended", doc.Name())
		}
		if rec.Handwritten {
			p.logger.Printf("%s: OCR output looks handwritten; manual review recommended", doc.Name())
		}
	}

	// Extraction failures are terminal statuses on the result, not
	// processing errors.
	return p.structurer.Build(doc, section, rec, extractErr), nil
}

func (p *Processor) extractSection(ctx context.Context, doc *document.Document, pdfDoc pdfio.Document, section *locate.Section) (*extract.Record, error) {
	pages := pageRange(section.Start, section.End)

	switch doc.Label {
	case document.Electronic:
		return p.electronic.Extract(ctx, pdfDoc, pages, section.Start)

	case document.Scanned:
		// Reach back two pages so Section A's beneficiaries answer is
		// inside the OCR window.
		start := section.Start - 2
		if start < 1 {
			start = 1
		}
		return p.scanned.Extract(ctx, doc.Path, pageRange(start, section.End))

	default:
		return p.extractHybrid(ctx, doc, pdfDoc, section, pages)
	}
}

// extractHybrid dispatches each located page down the path its content
// supports and merges the two records.
func (p *Processor) extractHybrid(ctx context.Context, doc *document.Document, pdfDoc pdfio.Document, section *locate.Section, pages []int) (*extract.Record, error) {
	var textPages, imagePages []int
	for _, page := range pages {
		if p.isImagePage(doc, pdfDoc, page) {
			imagePages = append(imagePages, page)
		} else {
			textPages = append(textPages, page)
		}
	}

	var rec *extract.Record
	if len(textPages) > 0 {
		r, err := p.electronic.Extract(ctx, pdfDoc, textPages, section.Start)
		if err != nil {
			return nil, err
		}
		rec = r
	}

	if len(imagePages) > 0 {
		r, err := p.scanned.Extract(ctx, doc.Path, imagePages)
		switch {
		case err == nil:
			if rec == nil {
				rec = r
			} else {
				rec.Merge(r)
			}
		case errors.Is(err, extract.ErrLowConfidence) && rec != nil && rec.HasContent():
			// The text-layer pages already carried the section; poor
			// OCR on the remainder does not void them.
			p.logger.Printf("%s: ignoring low-confidence OCR on pages %v, text layer sufficed",
				doc.Name(), imagePages)
		default:
			return nil, err
		}
	}

	if rec == nil {
		return nil, fmt.Errorf("no extractable pages in section %d-%d", section.Start, section.End)
	}

	if len(imagePages) > len(textPages) {
		rec.Method = extract.MethodOCR
	} else {
		rec.Method = extract.MethodElectronic
	}
	return rec, nil
}

// isImagePage decides the extraction path for one hybrid page.
func (p *Processor) isImagePage(doc *document.Document, pdfDoc pdfio.Document, page int) bool {
	if doc.IsImagePage(page) {
		return true
	}
	text, err := pdfDoc.PageText(page)
	if err != nil {
		return true
	}
	if len(strings.TrimSpace(text)) >= p.cfg.MinCharsPerPage {
		return false
	}
	// Thin text layer: image-backed pages go to OCR, genuinely blank
	// pages stay on the text path.
	return pdfDoc.PageHasImages(page)
}

// newPageSource builds the locator's page text source for this
// document: the text layer for electronic pages, cached OCR for
// image-only pages.
func (p *Processor) newPageSource(doc *document.Document, pdfDoc pdfio.Document) *pageSource {
	return &pageSource{
		doc:      doc,
		pdfDoc:   pdfDoc,
		minChars: p.cfg.MinCharsPerPage,
		ocr: &ocrPages{
			path:     doc.Path,
			renderer: p.renderer,
			factory:  p.ocrFactory,
			dpi:      p.cfg.OCRDPI,
		},
	}
}

type pageSource struct {
	doc      *document.Document
	pdfDoc   pdfio.Document
	minChars int
	ocr      *ocrPages
}

func (s *pageSource) Text(ctx context.Context, page int) (string, error) {
	switch s.doc.Label {
	case document.Electronic:
		return s.pdfDoc.PageText(page)
	case document.Scanned:
		return s.ocr.Text(ctx, page)
	default:
		text, err := s.pdfDoc.PageText(page)
		if err == nil && len(strings.TrimSpace(text)) >= s.minChars {
			return text, nil
		}
		return s.ocr.Text(ctx, page)
	}
}

func (s *pageSource) Close() {
	s.ocr.Close()
}

// ocrPages lazily rasterizes and OCRs pages, caching by page number so
// the locator's horizon scan never recognizes a page twice. Used by a
// single worker goroutine only.
type ocrPages struct {
	path     string
	renderer raster.Renderer
	factory  ocr.Factory
	dpi      int

	doc    raster.Document
	engine ocr.Engine
	cache  map[int]string
}

func (o *ocrPages) Text(ctx context.Context, page int) (string, error) {
	if text, ok := o.cache[page]; ok {
		return text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if o.doc == nil {
		doc, err := o.renderer.Open(o.path)
		if err != nil {
			return "", fmt.Errorf("failed to open for rasterization: %w", err)
		}
		engine, err := o.factory()
		if err != nil {
			doc.Close()
			return "", fmt.Errorf("failed to start OCR engine: %w", err)
		}
		o.doc = doc
		o.engine = engine
		o.cache = make(map[int]string)
	}

	img, err := o.doc.Render(page, o.dpi)
	if err != nil {
		return "", fmt.Errorf("failed to rasterize page %d: %w", page, err)
	}
	result, err := o.engine.Recognize(img)
	if err != nil {
		return "", fmt.Errorf("ocr failed on page %d: %w", page, err)
	}

	o.cache[page] = result.Text
	return result.Text, nil
}

func (o *ocrPages) Close() {
	if o.engine != nil {
		o.engine.Close()
		o.engine = nil
	}
	if o.doc != nil {
		o.doc.Close()
		o.doc = nil
	}
}

func pageRange(start, end int) []int {
	if end < start {
		return nil
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}
