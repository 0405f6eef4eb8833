// Package structure turns raw extraction outcomes into the canonical
// per-document result written to disk. Exactly one result exists per
// document; results are terminal and never patched in place.
package structure

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/communitydata/cic36-extract/internal/document"
	"github.com/communitydata/cic36-extract/internal/extract"
	"github.com/communitydata/cic36-extract/internal/locate"
)

// Extraction statuses. Closed set; every document ends in exactly one.
const (
	StatusSuccess          = "success"
	StatusWrongSection     = "wrong_section"
	StatusOCRQualityIssue  = "ocr_quality_issue"
	StatusNoCIC36Found     = "no_cic36_found"
	StatusExtractionFailed = "extraction_failed"
)

// SectionA holds the Section A payload.
type SectionA struct {
	Beneficiaries string `json:"beneficiaries"`
}

// SectionB holds the Section B payload.
type SectionB struct {
	Activities     []extract.Activity `json:"activities"`
	CompanyDiffers string             `json:"company_differs"`
	SurplusUse     string             `json:"surplus_use"`
}

// Metadata describes how the result was produced.
type Metadata struct {
	SourceFile        string `json:"source_file"`
	CIC36Page         int    `json:"cic36_page"`
	ExtractionMethod  string `json:"extraction_method"`
	ExtractedAt       string `json:"extracted_at"`
	DocumentPageCount int    `json:"document_page_count"`
}

// Result is the canonical output unit for one document.
type Result struct {
	CompanyNumber     string   `json:"company_number"`
	IncorporationDate string   `json:"incorporation_date"`
	DocumentType      string   `json:"document_type"`
	ExtractionStatus  string   `json:"extraction_status"`
	SectionA          SectionA `json:"section_a"`
	SectionB          SectionB `json:"section_b"`
	Metadata          Metadata `json:"extraction_metadata"`
}

// Structurer assembles Results. Status assignment is priority-ordered
// and evaluated top-down; the first matching status wins.
type Structurer struct {
	now func() time.Time
}

func NewStructurer() *Structurer {
	return &Structurer{now: time.Now}
}

// Build produces the single Result for a document. section is nil when
// the locator found nothing; rec is nil when extraction never ran or
// failed outright, with extractErr carrying the failure.
func (s *Structurer) Build(doc *document.Document, section *locate.Section, rec *extract.Record, extractErr error) *Result {
	result := &Result{
		CompanyNumber:     doc.Identity.CompanyNumber,
		IncorporationDate: doc.Identity.IncorporationDate,
		DocumentType:      string(doc.Label),
		SectionA:          SectionA{},
		SectionB:          SectionB{Activities: []extract.Activity{}},
		Metadata: Metadata{
			SourceFile:        doc.Name(),
			ExtractedAt:       s.now().UTC().Format(time.RFC3339),
			DocumentPageCount: doc.PageCount,
		},
	}

	if section != nil {
		result.Metadata.CIC36Page = section.Start
	}
	if rec != nil {
		result.Metadata.ExtractionMethod = rec.Method
	}

	result.ExtractionStatus = s.status(section, rec, extractErr)
	if result.ExtractionStatus == StatusSuccess || result.ExtractionStatus == StatusWrongSection {
		s.fillPayload(result, rec)
	}

	return result
}

func (s *Structurer) status(section *locate.Section, rec *extract.Record, extractErr error) string {
	switch {
	case section == nil && extractErr == nil:
		return StatusNoCIC36Found
	case errors.Is(extractErr, extract.ErrLowConfidence):
		// OCR quality gate evaluates before the content plausibility
		// check.
		return StatusOCRQualityIssue
	case extractErr != nil, rec == nil:
		return StatusExtractionFailed
	case rec.WrongSection:
		return StatusWrongSection
	case !rec.HasContent():
		return StatusExtractionFailed
	default:
		return StatusSuccess
	}
}

func (s *Structurer) fillPayload(result *Result, rec *extract.Record) {
	result.SectionA.Beneficiaries = normalize(rec.Beneficiaries)
	result.SectionB.CompanyDiffers = normalize(rec.CompanyDiffers)
	result.SectionB.SurplusUse = normalize(rec.SurplusUse)

	for _, act := range rec.Activities {
		a := extract.Activity{
			Activity:    normalize(act.Activity),
			Description: normalize(act.Description),
		}
		if a.Activity == "" && a.Description == "" {
			continue
		}
		result.SectionB.Activities = append(result.SectionB.Activities, a)
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
