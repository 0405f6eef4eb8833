package extract

import (
	"regexp"
	"strings"
)

// Free-text answers on the form always follow a printed prompt and run
// until the next prompt or section header. Segmentation anchors on
// those prompts, which is the only reliable structure left once table
// geometry is unavailable (OCR'd scans, or electronic pages pdf
// libraries fail to detect tables on).

var beneficiariesStart = compileAll(
	`The\s+company'?s?\s+activities\s+will\s+provide\s+benefit\s+to\s*[.:]?\s*`,
	`activities\s+will\s+provide\s+benefit\s+to\s*[.:]?\s*`,
	`provide\s+benefit\s+to\s+the\s+following\s*:?\s*`,
)

var beneficiariesEnd = compileAll(
	`Section\s*B\b`,
	`Community\s+Interest\s+Statement\s*[-–—]?\s*Activities`,
	`COMPANY\s+ACTIVITIES`,
)

var companyDiffersStart = compileAll(
	`Our\s+company\s+differs\s+from\s+a\s+general\s+commercial\s+company\s+because\s*[.:]?\s*`,
	`company\s+differs\s+from\s+a\s+(?:general\s+)?commercial\s+company\s+because\s*[.:]?\s*`,
)

var companyDiffersEnd = compileAll(
	`If\s+the\s+company\s+makes\s+any\s+surplus`,
	`Any\s+surplus`,
	`Section\s*C\b`,
	`SIGNATORIES`,
)

var surplusStart = compileAll(
	`If\s+the\s+company\s+makes\s+any\s+surplus\s+it\s+will\s+be\s+used\s+for\s*[.:]?\s*`,
	`If\s+the\s+company\s+makes\s+any\s+surplus\s+it\s+will\s+be\s+reinvested\s*[.:]?\s*`,
	`Any\s+surplus\s+(?:gained|from\s+trading)\s+will\s+be\s+reinvested\s*[.:]?\s*`,
	`Any\s+surplus\s+(?:will\s+be|is)\s+(?:used|reinvested|invested)\s*[.:]?\s*`,
	`surplus\s+(?:it\s+)?will\s+be\s+(?:used|reinvested)\s*[.:]?\s*`,
)

var surplusEnd = compileAll(
	`Section\s*C\b`,
	`SIGNATORIES`,
	`\(Please\s+continue\s+on`,
	`CHECKLIST`,
)

var surplusBoilerplate = compileAll(
	`\(if\s+donating\s+or\s+fundraising[^)]*\)`,
	`\(Please\s+continue\s+on\s+separate[^)]*\)`,
	`COMPANY\s+NAME\s*$`,
)

var beneficiariesTrailing = compileAll(
	`\s*Page\s+\d+\s*(?:of\s+\d+)?.*$`,
	`\s*Please\s+continue\s+on\s+separate\s+sheet.*$`,
	`\s*CIC\s*36.*$`,
)

// The printed prompt itself sometimes survives into the answer when the
// form repeats it inside the answer box.
var beneficiariesPrefix = compileAll(
	`^(?:Pr\s+)?The\s+company['’]?s?\s+activities\s+will\s+provide\s+benefit\s+to\s*\.{0,5}\s*`,
	`^activities\s+will\s+provide\s+benefit\s+to\s*\.{0,5}\s*`,
	`^provide\s+benefit\s+to\s*\.{0,5}\s*`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile("(?is)" + e)
	}
	return res
}

// segmentAfter returns the text between the first matching start prompt
// and the earliest end marker after it.
func segmentAfter(text string, starts, ends []*regexp.Regexp) string {
	for _, start := range starts {
		loc := start.FindStringIndex(text)
		if loc == nil {
			continue
		}
		remaining := text[loc[1]:]

		endPos := len(remaining)
		for _, end := range ends {
			if m := end.FindStringIndex(remaining); m != nil && m[0] < endPos {
				endPos = m[0]
			}
		}

		content := collapseWhitespace(remaining[:endPos])
		content = strings.TrimLeft(content, " .:")
		if content = strings.TrimSpace(content); content != "" {
			return content
		}
	}
	return ""
}

// Beneficiaries recovers the Section A answer naming who the company's
// activities will benefit.
func Beneficiaries(text string) string {
	content := segmentAfter(text, beneficiariesStart, beneficiariesEnd)
	if content == "" {
		return ""
	}
	for _, re := range beneficiariesTrailing {
		content = re.ReplaceAllString(content, "")
	}
	for _, re := range beneficiariesPrefix {
		content = re.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

// CompanyDiffers recovers the legacy-form answer to "Our company
// differs from a general commercial company because...".
func CompanyDiffers(text string) string {
	return segmentAfter(text, companyDiffersStart, companyDiffersEnd)
}

// SurplusUse recovers the answer to "If the company makes any surplus
// it will be used for...".
func SurplusUse(text string) string {
	content := segmentAfter(text, surplusStart, surplusEnd)
	if content == "" {
		return ""
	}
	for _, re := range surplusBoilerplate {
		content = re.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// OCR artifacts that show up in poor extractions.
var ocrArtifacts = []string{"\x00", "[]", "}{", "@@", "##", "***", "�", "|||", "___"}

func cleanCellText(s string) string {
	s = collapseWhitespace(s)
	for _, a := range ocrArtifacts {
		s = strings.ReplaceAll(s, a, "")
	}
	return strings.TrimSpace(s)
}

var headerPatterns = compileAll(
	`^activities?\s*$`,
	`^how\s+will`,
	`^describe\s+the`,
	`^please\s+(?:describe|explain|provide)`,
	`^section\s+[a-z]`,
	`^\d+\.\s*$`,
	`activit`,
	`benefit`,
	`community`,
)

var instructionPatterns = compileAll(
	`^please\s+(?:describe|explain|provide|enter)`,
	`^use\s+continuation\s+sheet`,
	`^see\s+guidance\s+notes`,
	`^if\s+necessary`,
	`page\s+\d+\s+of\s+\d+`,
	`^cic\s*36`,
	`^form\s+cic`,
	`companies\s+house`,
	`^\d{8}$`,
)

// isHeaderOrInstruction reports whether a cell holds form chrome
// (column headers, printed instructions, page furniture) rather than an
// applicant's answer.
func isHeaderOrInstruction(s string) bool {
	if s == "" {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, re := range headerPatterns {
		if loc := re.FindStringIndex(lower); loc != nil && loc[0] == 0 {
			return true
		}
	}
	for _, re := range instructionPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// headerRowKeywords identify the table's printed header row.
var headerRowKeywords = compileAll(`activit`, `benefit`, `how\s+will`, `community`)

func isHeaderRow(activity, description string) bool {
	rowText := strings.ToLower(activity + " " + description)
	matches := 0
	for _, re := range headerRowKeywords {
		if re.MatchString(rowText) {
			matches++
		}
	}
	return matches >= 2
}

// dedupeActivities drops repeated rows; the same content often spans a
// page break and gets extracted twice. Comparison uses a 100-char
// prefix so minor OCR variation still collapses.
func dedupeActivities(activities []Activity) []Activity {
	type key struct{ a, d string }
	seen := make(map[key]bool, len(activities))
	unique := make([]Activity, 0, len(activities))

	for _, act := range activities {
		if act.Activity == "" && act.Description == "" {
			continue
		}
		k := key{prefixKey(act.Activity), prefixKey(act.Description)}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, act)
	}
	return unique
}

func prefixKey(s string) string {
	s = strings.ToLower(s)
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// Boilerplate printed above and inside the Section B table. It has to
// go before activity parsing or it ends up inside the answers. The
// variants cover the modern form, the circa-2006 legacy form, and
// common OCR manglings of both.
var sectionBBoilerplate = compileAll(
	`Please\s+indicate\s+how\s+i[tf]\s+is\s+proposed\s+that\s+the\s+company.{0,30}activities\s+will\s+benefit\s+the\s+community.*?(?:individual|personal)\s*,?\s*gain\.?`,
	`Please\s+provide\s+as\s+much\s+detail\s+as\s+possible\s+to\s+enable\s+the\s+Regulator.*?(?:community\s+interest\s+company|See\s+note)[^)]*\)?\.?`,
	`\(or\s+a\s+section\s+of\s+the\s+community\)`,
	`\(See\s+note\s+\d+\)\.?`,
	`Activities\s*\(?\s*Please\s+provide\s+the\s+day\s+to\s+day\s+activities[^)]*\)?`,
	`\(Please\s+provide\s+the\s+day\s+to\s+day\s+activities[^)]*\)`,
	`Tell\s+us\s+here\s+what\s+the\s+company.*?is\s+being\s+set\s+up\s+to\s+do[^)]*\)?`,
	`How\s+will\s+the\s+activity\s+benefit\s+the\s+community\s*\??\s*\(?\s*The\s+community\s+will\s+benefit\s+by[^)]*\)?`,
	`\(The\s+community\s+will\s+benefit\s+by[^)]*\)`,
	`Activities\s+How\s+each\s+activity\s+benefits\s+the\s+community`,
	`\(If\s+donating\s+to\s+a\s+non-nominated\s+Asset\s+Locked\s+Body[^)]*\)`,
	`SECTION\s+B\s*:\s*COMPANY\s+ACTIVITIES\s*`,
	`SECTION\s+B\s*:\s*Community\s+Interest\s+Statement\s*[-–—]?\s*Activities\s*(?:&|and)?\s*Related\s+Benefit\s*`,
	`Community\s+Interest\s+Statement\s*[-–—]?\s*Activities\s*(?:&|and)?\s*Related\s+Benefit\s*`,
	`Please\s+continue\s+on\s+separate\s+sheet\s+if\s+necessary`,
	`Declarations?\s+on\s+Formation\s+of\s+a\s*\n?\s*Community\s+[Ii]nterest\s+Company`,
)

// stripSectionBoilerplate removes printed form text from OCR output so
// only the applicant's answers remain.
func stripSectionBoilerplate(text string) string {
	for _, re := range sectionBBoilerplate {
		text = re.ReplaceAllString(text, "")
	}
	text = regexp.MustCompile(`\n\s*\n\s*\n+`).ReplaceAllString(text, "\n\n")
	text = regexp.MustCompile(`  +`).ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// A filing whose Section B answer says "see attached" usually carries a
// standalone continuation page headed "Section B" further into the
// bundle.
var standaloneHeading = compileAll(
	`Section\s*B\s*[:\-]?\s*(?:Community\s+Interest|Activities)`,
	`Community\s+Interest\s+Statement\s*[-–—]?\s*Activities`,
	`SECTION\s*B\b`,
)

var standaloneEnd = compileAll(
	`Section\s*C`,
	`Declaration`,
	`Signature`,
	`CHECKLIST`,
)

// standaloneSectionB parses one page's text as a Section B continuation
// page: content after a standalone heading, cut before the next form
// part. Returns nil when the page holds no real answers.
func standaloneSectionB(text string) []Activity {
	for _, re := range standaloneHeading {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		content := text[loc[1]:]
		for _, end := range standaloneEnd {
			if m := end.FindStringIndex(content); m != nil {
				content = content[:m[0]]
				break
			}
		}
		if len(strings.TrimSpace(content)) < 50 {
			continue
		}
		if acts := activitiesFromText(content); len(acts) > 0 && !isReferentialContent(acts) {
			return acts
		}
	}
	return nil
}

// The benefit column's answers conventionally open with this phrase, so
// it doubles as a column separator when geometry is lost.
var benefitMarker = regexp.MustCompile(`(?i)The\s+community\s+will\s+benefit\s+(?:by\s+)?(?:significantly\s+)?(?:as\s+)?`)

// Everything after these markers sits below the Section B table.
var sectionTableEnd = compileAll(
	`(?:Our\s+)?company\s+differs\s+from\s+a?\s*general`,
	`If\s+the\s+company\s+makes\s+any\s+surplus`,
	`Section\s*C\b`,
	`SIGNATORIES`,
	`\(Please\s+continue\s+on`,
)

// activitiesFromText splits linear section text into activity/benefit
// pairs using the benefit marker phrase. Used when no two-column layout
// was recovered.
func activitiesFromText(text string) []Activity {
	text = stripSectionBoilerplate(text)
	for _, re := range sectionTableEnd {
		if loc := re.FindStringIndex(text); loc != nil {
			text = text[:loc[0]]
		}
	}
	if len(strings.TrimSpace(text)) < 50 {
		return nil
	}

	locs := benefitMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		// One undivided block. Emit it as a single activity if it
		// holds real content.
		content := collapseWhitespace(text)
		if content == "" || isHeaderOrInstruction(content) || isNoisePair(content, "") {
			return nil
		}
		return []Activity{{Activity: content}}
	}

	var activities []Activity
	prevEnd := 0
	for i, loc := range locs {
		activity := collapseWhitespace(text[prevEnd:loc[0]])

		descEnd := len(text)
		if i+1 < len(locs) {
			descEnd = locs[i+1][0]
		}
		description := collapseWhitespace(text[loc[1]:descEnd])
		prevEnd = descEnd

		if activity == "" && description == "" {
			continue
		}
		if isNoisePair(activity, description) {
			continue
		}
		activities = append(activities, Activity{Activity: activity, Description: description})
	}

	return dedupeActivities(activities)
}
