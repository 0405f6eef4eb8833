package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitydata/cic36-extract/internal/pdfio"
)

type fakePage struct {
	words []pdfio.Word
	text  string
}

type fakeDoc struct {
	pages map[int]fakePage
	count int
}

func (f *fakeDoc) PageCount() int { return f.count }

func (f *fakeDoc) PageText(page int) (string, error) {
	if page < 1 || page > f.count {
		return "", fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page].text, nil
}

func (f *fakeDoc) PageWords(page int) ([]pdfio.Word, error) {
	return f.pages[page].words, nil
}

func (f *fakeDoc) PageHasImages(page int) bool { return false }
func (f *fakeDoc) Close() error                { return nil }

// tableRow lays words for one table row at the given text-layer height
// (y grows up the page in PDF coordinates), wrapping each cell four
// words to a line the way a narrow table column does.
func tableRow(y float64, left, right string) []pdfio.Word {
	cell := func(startX float64, text string) []pdfio.Word {
		var words []pdfio.Word
		x, lineY := startX, y
		for i, w := range strings.Fields(text) {
			if i > 0 && i%4 == 0 {
				x = startX
				lineY -= 12
			}
			words = append(words, pdfio.Word{Text: w, X: x, Y: lineY, W: 35})
			x += 40
		}
		return words
	}
	return append(cell(50, left), cell(330, right)...)
}

func TestElectronicExtractTable(t *testing.T) {
	benefit := "The community will benefit by access to affordable meals and accredited training placements for unemployed residents"

	doc := &fakeDoc{
		count: 6,
		pages: map[int]fakePage{
			3: {text: "Section A\nThe company's activities will provide benefit to...\nresidents of the town centre\n"},
			4: {
				words: tableRow(700, "Running a community cafe and training kitchen", benefit),
				text: "SECTION B: Community Interest Statement - Activities & Related Benefit\n" +
					"If the company makes any surplus it will be used for:\nreinvestment into the cafe\nSection C",
			},
		},
	}

	e := NewElectronic()
	rec, err := e.Extract(context.Background(), doc, []int{4, 5}, 4)

	require.NoError(t, err)
	require.Len(t, rec.Activities, 1)
	assert.Contains(t, rec.Activities[0].Activity, "community cafe and training kitchen")
	assert.Contains(t, rec.Activities[0].Description, "affordable meals")
	assert.Equal(t, "reinvestment into the cafe", rec.SurplusUse)
	assert.Equal(t, "residents of the town centre", rec.Beneficiaries)
	assert.Equal(t, MethodElectronic, rec.Method)
	assert.False(t, rec.UsedFallback)
	assert.False(t, rec.WrongSection)
}

func TestElectronicExtractFallbackSegmentation(t *testing.T) {
	// No word geometry at all: content must come from the prompt-based
	// text segmentation.
	doc := &fakeDoc{
		count: 2,
		pages: map[int]fakePage{
			1: {text: "We will operate weekly training workshops across the borough.\n" +
				"The community will benefit by gaining accredited skills and confidence."},
		},
	}

	e := NewElectronic()
	rec, err := e.Extract(context.Background(), doc, []int{1}, 1)

	require.NoError(t, err)
	assert.True(t, rec.UsedFallback)
	require.Len(t, rec.Activities, 1)
	assert.Contains(t, rec.Activities[0].Activity, "training workshops")
	assert.Contains(t, rec.Activities[0].Description, "accredited skills")
}

func TestElectronicExtractWrongSection(t *testing.T) {
	doc := &fakeDoc{
		count: 2,
		pages: map[int]fakePage{
			1: {text: "Application to register a company\nProposed officers\n" +
				"For a secretary who is an individual, go to Section C1"},
		},
	}

	e := NewElectronic()
	rec, err := e.Extract(context.Background(), doc, []int{1}, 1)

	require.NoError(t, err)
	assert.True(t, rec.WrongSection)
	assert.Equal(t, "IN01 form content detected", rec.WrongSectionReason)
}

func TestElectronicExtractReferentialKeptAsContent(t *testing.T) {
	doc := &fakeDoc{
		count: 2,
		pages: map[int]fakePage{
			1: {text: "For the community activities please see attached statement.\n" +
				"The community will benefit as described in the attached statement."},
		},
	}

	e := NewElectronic()
	rec, err := e.Extract(context.Background(), doc, []int{1}, 1)

	require.NoError(t, err)
	assert.True(t, rec.Referential)
	assert.False(t, rec.WrongSection)
	require.NotEmpty(t, rec.Activities)
	assert.Contains(t, rec.Activities[0].Activity, "see attached")
}

func TestElectronicExtractSkipsOutOfRangePages(t *testing.T) {
	doc := &fakeDoc{count: 2, pages: map[int]fakePage{}}

	e := NewElectronic()
	rec, err := e.Extract(context.Background(), doc, []int{1, 2, 3, 4}, 1)

	require.NoError(t, err)
	assert.Empty(t, rec.Activities)
}

func TestElectronicExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &fakeDoc{count: 2, pages: map[int]fakePage{}}
	e := NewElectronic()
	_, err := e.Extract(ctx, doc, []int{1}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
