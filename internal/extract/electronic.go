package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/communitydata/cic36-extract/internal/pdfio"
)

// electronicLineThreshold groups text-layer words into lines. PDF text
// coordinates are in points; form body text runs around 10pt.
const electronicLineThreshold = 5.0

// Electronic extracts Section A/B content from a document's text layer
// using positioned-word geometry, with prompt segmentation as the
// fallback when no table layout is detected.
type Electronic struct{}

func NewElectronic() *Electronic {
	return &Electronic{}
}

// Extract parses the given 1-indexed section pages. sectionStart is the
// located start page, used to reach back into Section A for the
// beneficiaries answer (Section A sits one or two pages earlier).
func (e *Electronic) Extract(ctx context.Context, doc pdfio.Document, pages []int, sectionStart int) (*Record, error) {
	record := &Record{
		Method:        MethodElectronic,
		PagesSearched: pages,
	}

	var activities []Activity
	var sectionText strings.Builder

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page < 1 || page > doc.PageCount() {
			continue
		}

		words, err := doc.PageWords(page)
		if err == nil && len(words) > 0 {
			boxes := make([]wordBox, len(words))
			for i, w := range words {
				// Text-layer y grows up the page; layout wants it
				// growing down.
				boxes[i] = wordBox{text: w.Text, x: w.X, y: -w.Y}
			}
			if cols := splitColumns(boxes, electronicLineThreshold); cols.twoColumn {
				activities = append(activities, columnsToActivities(cols.left, cols.right)...)
			}
		}

		text, err := doc.PageText(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d text: %w", page, err)
		}
		sectionText.WriteString(text)
		sectionText.WriteString("\n")
	}

	fullText := sectionText.String()

	record.Activities = dedupeActivities(activities)
	if len(record.Activities) == 0 {
		record.Activities = activitiesFromText(fullText)
		record.UsedFallback = true
	}

	record.SurplusUse = SurplusUse(fullText)
	record.CompanyDiffers = CompanyDiffers(fullText)
	record.Beneficiaries = e.beneficiaries(ctx, doc, sectionStart)

	if ok, reason := validateSectionContent(record.Activities, fullText); !ok {
		record.WrongSection = true
		record.WrongSectionReason = reason
	} else if isReferentialContent(record.Activities) {
		record.Referential = true
	}

	return record, nil
}

// beneficiaries reads the pages leading into the section, where Section
// A's "activities will provide benefit to" answer lives.
func (e *Electronic) beneficiaries(ctx context.Context, doc pdfio.Document, sectionStart int) string {
	var b strings.Builder
	for page := sectionStart - 2; page <= sectionStart; page++ {
		if page < 1 || page > doc.PageCount() {
			continue
		}
		if ctx.Err() != nil {
			return ""
		}
		text, err := doc.PageText(page)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return Beneficiaries(b.String())
}
