// Package extract recovers Section A and Section B content from the
// located CIC 36 pages. Electronic documents are parsed from the
// positioned text layer; scanned documents go through rasterization
// and OCR. Both paths produce the same Record.
package extract

import "errors"

// Method values carried into the output metadata.
const (
	MethodElectronic = "pdfplumber"
	MethodOCR        = "ocr"
)

// ErrLowConfidence aborts a scanned extraction whose OCR output is not
// trustworthy enough to emit.
var ErrLowConfidence = errors.New("ocr confidence below minimum")

// Activity is one row of the Section B table: what the company does and
// how it benefits the community.
type Activity struct {
	Activity    string `json:"activity"`
	Description string `json:"description"`
}

// Record is the raw extraction outcome for one document, before
// structuring. Empty fields mean the content was not found, not that
// extraction failed.
type Record struct {
	Beneficiaries  string
	Activities     []Activity
	CompanyDiffers string
	SurplusUse     string

	Method        string
	PagesSearched []int

	// OCRConfidence is the mean word confidence over the OCR'd pages,
	// 0..1. Zero for electronic extractions.
	OCRConfidence float64

	// WrongSection marks content that failed the Section B
	// plausibility check (picked up IN01 boilerplate or a duplicate
	// index).
	WrongSection       bool
	WrongSectionReason string

	// Referential marks answers that only point at an attached page
	// ("please see attached") and no standalone continuation was
	// found. The content is kept; it needs manual review.
	Referential bool

	// Handwritten marks OCR output with handwriting characteristics.
	// Extraction still proceeds; the content needs manual review.
	Handwritten bool

	// UsedFallback is set when table geometry was not detected and
	// content came from prompt-based text segmentation.
	UsedFallback bool
}

// HasContent reports whether any Section A or B field was populated.
func (r *Record) HasContent() bool {
	return r.Beneficiaries != "" || len(r.Activities) > 0 ||
		r.CompanyDiffers != "" || r.SurplusUse != ""
}

// Merge folds other into r, used for hybrid documents where the two
// extraction paths each cover part of the section. Existing fields win;
// activities are concatenated and deduplicated.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	if r.Beneficiaries == "" {
		r.Beneficiaries = other.Beneficiaries
	}
	if r.CompanyDiffers == "" {
		r.CompanyDiffers = other.CompanyDiffers
	}
	if r.SurplusUse == "" {
		r.SurplusUse = other.SurplusUse
	}
	r.Activities = dedupeActivities(append(r.Activities, other.Activities...))
	r.PagesSearched = append(r.PagesSearched, other.PagesSearched...)
	if other.WrongSection {
		r.WrongSection = true
		if r.WrongSectionReason == "" {
			r.WrongSectionReason = other.WrongSectionReason
		}
	}
	if other.Referential {
		r.Referential = true
	}
	if other.Handwritten {
		r.Handwritten = true
	}
	if other.UsedFallback {
		r.UsedFallback = true
	}
	if other.OCRConfidence > 0 && (r.OCRConfidence == 0 || other.OCRConfidence < r.OCRConfidence) {
		r.OCRConfidence = other.OCRConfidence
	}
}
