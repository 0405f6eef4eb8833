package extract

import (
	"regexp"
	"strings"
)

// The locator anchors on header text, so a duplicate index entry or an
// IN01 page that happens to mention "activities" can still be handed to
// an extractor. Validation catches that before the content is emitted
// as a success.

var in01Patterns = compileAll(
	`Application\s+to\s+register\s+a\s+company`,
	`Proposed\s+officers`,
	`appointment\s+of\s+a\s+secretary`,
	`For\s+a\s+secretary\s+who\s+is\s+an\s+individual`,
	`go\s+to\s+Section\s+[BC]\d`,
	`Private\s+companies\s+must\s+appoint`,
	`Public\s+companies\s+are\s+required`,
)

var cic36ContentMarkers = compileAll(
	`community`,
	`benefit`,
	`activit`,
	`surplus`,
	`differs?\s+from`,
)

var referentialPatterns = compileAll(
	`please\s+see\s+attached`,
	`see\s+attached`,
	`refer\s+to\s+attached`,
	`as\s+per\s+attached`,
	`attached\s+(?:appendix|schedule|document)`,
)

// validateSectionContent checks that extracted content plausibly came
// from CIC 36 Section B rather than a neighbouring form. Returns ok and
// a reason when not ok.
func validateSectionContent(activities []Activity, text string) (bool, string) {
	var b strings.Builder
	b.WriteString(text)
	for _, act := range activities {
		b.WriteString(" ")
		b.WriteString(act.Activity)
		b.WriteString(" ")
		b.WriteString(act.Description)
	}
	combined := b.String()

	for _, re := range in01Patterns {
		if re.MatchString(combined) {
			return false, "IN01 form content detected"
		}
	}

	markersFound := 0
	for _, re := range cic36ContentMarkers {
		if re.MatchString(combined) {
			markersFound++
		}
	}
	if markersFound < 1 && len(combined) > 100 {
		return false, "content does not look like Section B"
	}

	return true, ""
}

// isReferentialContent reports whether the activities only point at an
// attachment ("please see attached") instead of describing anything.
// Short referential answers mean the real content lives on pages the
// section range did not cover.
func isReferentialContent(activities []Activity) bool {
	for _, act := range activities {
		combined := strings.ToLower(act.Activity + " " + act.Description)
		for _, re := range referentialPatterns {
			if re.MatchString(combined) && len(strings.TrimSpace(combined)) < 300 {
				return true
			}
		}
	}
	return false
}

var placeholderPatterns = compileAll(
	`lorem\s+ipsum`,
	`\[.*placeholder.*\]`,
	`\[.*example.*\]`,
	`xxx+`,
	`enter\s+text\s+here`,
)

var specialCharClass = regexp.MustCompile(`[^a-zA-Z0-9 .,;:!?()\-'"]`)

func specialCharRatio(s string) float64 {
	if s == "" {
		return 0
	}
	return float64(len(specialCharClass.FindAllString(s, -1))) / float64(len(s))
}

// isPlaceholder reports form template text that was never filled in.
func isPlaceholder(s string) bool {
	for _, re := range placeholderPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

const maxSpecialCharRatio = 0.15

// isNoisePair reports an activity pair that is template placeholder
// text or so symbol-heavy it can only be OCR garbage.
func isNoisePair(activity, description string) bool {
	combined := activity + " " + description
	if isPlaceholder(combined) {
		return true
	}
	return specialCharRatio(combined) > maxSpecialCharRatio
}
