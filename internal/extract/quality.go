package extract

import (
	"regexp"
	"strings"
)

// TextQuality grades OCR output by how much it resembles English.
// Engine confidence alone is not enough: tesseract reports healthy
// confidence on handwriting and skewed scans while producing garbage.
type TextQuality string

const (
	QualityVeryLow TextQuality = "very_low"
	QualityLow     TextQuality = "low"
	QualityMedium  TextQuality = "medium"
)

var commonWords = []string{
	"the", "and", "for", "will", "community", "be", "to", "of",
	"is", "in", "that", "with", "by", "as", "are", "from",
}

var commonWordRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(commonWords))
	for i, w := range commonWords {
		res[i] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return res
}()

var consonantRun = regexp.MustCompile(`[bcdfghjklmnpqrstvwxyz]{6,}`)

// AssessTextQuality applies character-statistics heuristics to OCR
// output: vowel ratio (English runs around 38%), common-word hits,
// special-character density, and long consonant runs typical of
// garbled recognition.
func AssessTextQuality(text string) TextQuality {
	if len(strings.TrimSpace(text)) < 50 {
		return QualityVeryLow
	}

	lower := strings.ToLower(text)

	vowels, consonants := 0, 0
	for _, r := range lower {
		switch {
		case strings.ContainsRune("aeiou", r):
			vowels++
		case r >= 'a' && r <= 'z':
			consonants++
		}
	}
	letters := vowels + consonants
	if letters == 0 {
		return QualityVeryLow
	}
	vowelRatio := float64(vowels) / float64(letters)

	wordsFound := 0
	for _, re := range commonWordRes {
		if re.MatchString(lower) {
			wordsFound++
		}
	}

	special := 0
	for _, r := range text {
		if strings.ContainsRune(`{}[]|\<>~`+"`"+`^@#$%&*+=`, r) {
			special++
		}
	}
	specialRatio := float64(special) / float64(len(text))

	longRuns := len(consonantRun.FindAllString(lower, -1))

	if vowelRatio < 0.15 || vowelRatio > 0.65 || wordsFound < 3 ||
		specialRatio > 0.1 || longRuns > 3 {
		return QualityVeryLow
	}
	if vowelRatio < 0.25 || vowelRatio > 0.55 || wordsFound < 6 ||
		specialRatio > 0.05 || longRuns > 1 {
		return QualityLow
	}
	if wordsFound >= 10 {
		return QualityMedium
	}
	return QualityLow
}

// Handwriting that tesseract half-recognizes comes out as short broken
// fragments, few dictionary words, and stroke artifacts. These markers
// flag it for manual review without blocking extraction.
var handwritingWords = append(commonWords,
	"company", "benefit", "activity", "activities", "section")

var handwritingWordRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(handwritingWords))
	for i, w := range handwritingWords {
		res[i] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return res
}()

var handwritingArtifacts = []*regexp.Regexp{
	regexp.MustCompile(`[bcdfghjklmnpqrstvwxyz]{5,}`),
	regexp.MustCompile(`[aeiou]{4,}`),
	regexp.MustCompile(`\|{2,}`),
}

// IsLikelyHandwritten reports whether OCR output looks like recognized
// handwriting rather than printed text.
func IsLikelyHandwritten(text string) bool {
	if len(strings.TrimSpace(text)) < 50 {
		return false
	}

	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	if len(words) == 0 {
		return false
	}

	short := 0
	for _, w := range words {
		if len(w) <= 2 {
			short++
		}
	}
	shortRatio := float64(short) / float64(len(words))

	wordsFound := 0
	for _, re := range handwritingWordRes {
		if re.MatchString(lower) {
			wordsFound++
		}
	}

	if shortRatio > 0.4 && wordsFound < 5 {
		return true
	}

	expected := float64(len(text)) / 100
	if expected > 2 && float64(wordsFound) < expected*0.3 {
		return true
	}

	artifacts := 0
	for _, re := range handwritingArtifacts {
		artifacts += len(re.FindAllString(lower, -1))
	}
	return artifacts > 5
}
