package extract

import (
	"sort"
	"strings"
)

// wordBox is a positioned word in page coordinates with y increasing
// downward. Both the PDF text layer and OCR word boxes are normalized
// to this before layout analysis.
type wordBox struct {
	text string
	x, y float64
}

type columnSplit struct {
	left, right string
	twoColumn   bool
	boundary    float64
}

// minColumnShare is the fraction of page text each side must hold for
// the page to count as a two-column table.
const minColumnShare = 0.15

// splitColumns detects the Section B two-column table from word
// positions. Words cluster left and right of the page midline when the
// table is present; otherwise the page reads as a single column.
func splitColumns(words []wordBox, lineThreshold float64) columnSplit {
	if len(words) == 0 {
		return columnSplit{}
	}

	minX, maxX := words[0].x, words[0].x
	for _, w := range words {
		if w.x < minX {
			minX = w.x
		}
		if w.x > maxX {
			maxX = w.x
		}
	}
	boundary := minX + (maxX-minX)/2

	// A real two-column table has an empty gutter at the midline.
	// Full-width paragraphs put words straight through it.
	gutter := (maxX - minX) * 0.05
	violations := 0
	for _, w := range words {
		if w.x > boundary-gutter && w.x < boundary+gutter {
			violations++
		}
	}
	if violations > len(words)/20 {
		return columnSplit{
			left:     reconstructText(words, lineThreshold),
			boundary: boundary,
		}
	}

	var left, right []wordBox
	leftLen, rightLen := 0, 0
	for _, w := range words {
		if w.x < boundary {
			left = append(left, w)
			leftLen += len(w.text)
		} else {
			right = append(right, w)
			rightLen += len(w.text)
		}
	}

	total := leftLen + rightLen
	if total == 0 {
		return columnSplit{}
	}
	leftShare := float64(leftLen) / float64(total)
	rightShare := float64(rightLen) / float64(total)

	if leftShare < minColumnShare || rightShare < minColumnShare {
		return columnSplit{
			left:     reconstructText(words, lineThreshold),
			boundary: boundary,
		}
	}

	return columnSplit{
		left:      reconstructText(left, lineThreshold),
		right:     reconstructText(right, lineThreshold),
		twoColumn: true,
		boundary:  boundary,
	}
}

// reconstructText orders words top-to-bottom, left-to-right and joins
// them back into lines. Words within lineThreshold vertically belong to
// the same line; a gap over three times the threshold is kept as a
// paragraph break, which later block pairing relies on.
func reconstructText(words []wordBox, lineThreshold float64) string {
	if len(words) == 0 {
		return ""
	}

	sorted := make([]wordBox, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y < sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var b strings.Builder
	lineY := sorted[0].y
	lineStart := 0

	flushLine := func(end int) {
		line := sorted[lineStart:end]
		sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })
		for i, w := range line {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(w.text)
		}
	}

	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].y - lineY
		if gap <= lineThreshold {
			continue
		}
		flushLine(i)
		if gap > 3*lineThreshold {
			b.WriteString("\n\n")
		} else {
			b.WriteString("\n")
		}
		lineY = sorted[i].y
		lineStart = i
	}
	flushLine(len(sorted))

	return b.String()
}

// columnsToActivities pairs the two reconstructed column texts into
// activity rows. Blocks separated by paragraph gaps pair up positionally
// when the counts agree; otherwise each column is taken as one cell.
func columnsToActivities(left, right string) []Activity {
	leftBlocks := textBlocks(left)
	rightBlocks := textBlocks(right)

	var activities []Activity
	if len(leftBlocks) == len(rightBlocks) {
		for i := range leftBlocks {
			activities = append(activities, Activity{
				Activity:    cleanCellText(leftBlocks[i]),
				Description: cleanCellText(rightBlocks[i]),
			})
		}
	} else {
		activities = append(activities, Activity{
			Activity:    cleanCellText(left),
			Description: cleanCellText(right),
		})
	}

	kept := activities[:0]
	for _, act := range activities {
		if act.Activity == "" && act.Description == "" {
			continue
		}
		// The printed header row is short; a genuine answer mentioning
		// "community" and "benefit" is not.
		if isHeaderRow(act.Activity, act.Description) && len(act.Activity)+len(act.Description) < 120 {
			continue
		}
		if isHeaderOrInstruction(act.Activity) && act.Description == "" {
			continue
		}
		if isNoisePair(act.Activity, act.Description) {
			continue
		}
		kept = append(kept, act)
	}

	return dedupeActivities(kept)
}

func textBlocks(s string) []string {
	var blocks []string
	for _, block := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
