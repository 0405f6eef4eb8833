// Package locate finds the CIC 36 form inside an incorporation bundle.
// The bundle packs many forms together (cover sheet, IN01, memorandum,
// articles) so extraction has to anchor on the form's own header text
// rather than assume a fixed offset.
package locate

import (
	"context"
	"fmt"
	"regexp"
)

// Confidence grades how strongly the located pages matched the known
// header patterns.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Section is a located CIC 36 form: an inclusive 1-indexed page range,
// the confidence grade, and the canonical name of the header pattern
// that anchored the match.
type Section struct {
	Start      int
	End        int
	Confidence Confidence
	Pattern    string
}

// PageSource returns the text of a 1-indexed page. The pipeline wires
// it per classification: the text layer for electronic pages, OCR text
// for image-only pages.
type PageSource func(ctx context.Context, page int) (string, error)

type pattern struct {
	re   *regexp.Regexp
	name string
}

func mustPattern(name, expr string) pattern {
	return pattern{re: regexp.MustCompile("(?i)" + expr), name: name}
}

// Markers that the CIC 36 form itself is present on a page.
var cic36Markers = []pattern{
	mustPattern("CIC 36", `CIC\s*36`),
	mustPattern("Form CIC 36", `Form\s+CIC\s*36`),
	mustPattern("Declarations on Formation of a Community Interest Company",
		`Declarations?\s+on\s+Formation\s+of\s+a\s+Community\s+Interest\s+Company`),
	mustPattern("Community Interest Statement", `Community\s+Interest\s+Statement`),
	mustPattern("Declarations on Formation", `Declarations?\s+on\s+Formation`),
}

// Section B header patterns, strongest first. The character classes
// tolerate OCR noise around punctuation. Older forms (circa 2006) head
// the section "SECTION B: COMPANY ACTIVITIES" instead, and some
// variants use "SCHEDULE 2".
var sectionBPrimary = []pattern{
	mustPattern("SECTION B: Community Interest Statement - Activities & Related Benefit",
		`SECTION\s*B\s*[:\-\.]?\s*Community\s+Interest\s+Statement\s*[-–—]?\s*Activities\s*(?:&|and)\s*Related\s*Benefit`),
	mustPattern("SCHEDULE 2: Community Interest Statement",
		`SCHEDULE\s*2\s*[:\-\.]?\s*Community\s+Interest\s+Statement`),
	mustPattern("Section B: Community Interest Statement",
		`Section\s*B[:\s\-\.]+Community\s+Interest\s+Statement`),
	mustPattern("Section B: Activities & Related Benefit",
		`Section\s*B[:\s\-\.]+Activities\s*(?:&|and)\s*Related\s*Benefit`),
	mustPattern("SECTION B: COMPANY ACTIVITIES",
		`SECTION\s*B\s*[:\-\.]?\s*COMPANY\s+ACTIVITIES`),
	mustPattern("Section B: Company Activities",
		`Section\s*B[:\s\-\.]+Company\s+Activities`),
}

var sectionBSecondary = []pattern{
	mustPattern("Activities & Related Benefit", `Activities\s*(?:&|and)\s*Related\s*Benefit`),
	mustPattern("What activities will the company carry out",
		`What\s+activities\s+will\s+the\s+(?:company|CIC)\s+carry\s+out`),
	mustPattern("How will the activities benefit the community",
		`How\s+will\s+(?:the\s+)?activit(?:y|ies)\s+benefit\s+the\s+community`),
}

var sectionBTable = []pattern{
	mustPattern("Activities | Benefit table header", `Activities?\s*\|?\s*(?:How\s+will|Benefit)`),
	mustPattern("Description of the Activities", `Description\s+of\s+(?:the\s+)?Activities`),
}

// Headers of the neighbouring forms in the bundle. A page matching one
// of these is the wrong section, and seeing one after the start page
// means the CIC 36 form has ended.
var otherFormHeaders = []pattern{
	mustPattern("Section A", `Section\s*A[:\s]`),
	mustPattern("Section C", `Section\s*C[:\s]`),
	mustPattern("Memorandum of Association", `Memorandum\s+of\s+Association`),
	mustPattern("Articles of Association", `Articles\s+of\s+Association`),
	mustPattern("Certificate of Incorporation", `Certificate\s+of\s+Incorporation`),
	mustPattern("Statement of Compliance", `Statement\s+of\s+Compliance`),
}

func matchAny(patterns []pattern, text string) (string, bool) {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.name, true
		}
	}
	return "", false
}

// Locator scans a bounded prefix of the document for the CIC 36 form.
type Locator struct {
	maxPagesToSearch int
	maxSectionPages  int
}

// NewLocator creates a locator that searches the first maxPagesToSearch
// pages for the section header and bounds a located section to
// maxSectionPages pages.
func NewLocator(maxPagesToSearch, maxSectionPages int) *Locator {
	return &Locator{
		maxPagesToSearch: maxPagesToSearch,
		maxSectionPages:  maxSectionPages,
	}
}

// Find scans pages 1..horizon through source looking for the Section B
// header. The first matching page becomes the start; the end advances
// until another form's header appears, the section page cap is hit, or
// the document ends. A nil Section with a nil error means no match
// within the horizon, which is a valid terminal outcome.
func (l *Locator) Find(ctx context.Context, pageCount int, source PageSource) (*Section, error) {
	horizon := l.maxPagesToSearch
	if horizon > pageCount {
		horizon = pageCount
	}

	cic36Seen := false

	for page := 1; page <= horizon; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := source(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", page, err)
		}

		_, isCIC36 := matchAny(cic36Markers, text)
		if isCIC36 {
			cic36Seen = true
		}

		// Pages carrying another form's header only count when the
		// CIC 36 marker is on the same page, otherwise headers like
		// "Section A" in the IN01 would anchor the wrong section.
		if _, excluded := matchAny(otherFormHeaders, text); excluded && !isCIC36 {
			continue
		}

		name, conf, ok := matchSectionB(text)
		if !ok {
			continue
		}
		if !cic36Seen && conf == ConfidenceHigh {
			conf = ConfidenceMedium
		}

		end, err := l.findEnd(ctx, page, pageCount, source)
		if err != nil {
			return nil, err
		}

		return &Section{Start: page, End: end, Confidence: conf, Pattern: name}, nil
	}

	return nil, nil
}

// matchSectionB tries the pattern tiers strongest-first and grades the
// match accordingly.
func matchSectionB(text string) (string, Confidence, bool) {
	if name, ok := matchAny(sectionBPrimary, text); ok {
		return name, ConfidenceHigh, true
	}
	if name, ok := matchAny(sectionBSecondary, text); ok {
		return name, ConfidenceMedium, true
	}
	if name, ok := matchAny(sectionBTable, text); ok {
		return name, ConfidenceLow, true
	}
	return "", "", false
}

func (l *Locator) findEnd(ctx context.Context, start, pageCount int, source PageSource) (int, error) {
	last := start + l.maxSectionPages - 1
	if last > pageCount {
		last = pageCount
	}

	end := start
	for page := start + 1; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		text, err := source(ctx, page)
		if err != nil {
			// The located start stands even when a later page is
			// unreadable.
			return end, nil
		}

		if _, next := matchAny(otherFormHeaders, text); next {
			if _, stillCIC36 := matchAny(cic36Markers, text); !stillCIC36 {
				return end, nil
			}
		}
		end = page
	}

	return end, nil
}
