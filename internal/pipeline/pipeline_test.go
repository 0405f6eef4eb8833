package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitydata/cic36-extract/internal/config"
	"github.com/communitydata/cic36-extract/internal/ocr"
	"github.com/communitydata/cic36-extract/internal/pdfio"
	"github.com/communitydata/cic36-extract/internal/raster"
	"github.com/communitydata/cic36-extract/internal/structure"
)

// --- fakes -----------------------------------------------------------------

type fakePage struct {
	text      string
	words     []pdfio.Word
	hasImages bool
}

type fakePDF struct {
	pages []fakePage
}

func (f *fakePDF) PageCount() int { return len(f.pages) }

func (f *fakePDF) PageText(page int) (string, error) {
	if page < 1 || page > len(f.pages) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page-1].text, nil
}

func (f *fakePDF) PageWords(page int) ([]pdfio.Word, error) {
	if page < 1 || page > len(f.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page-1].words, nil
}

func (f *fakePDF) PageHasImages(page int) bool { return f.pages[page-1].hasImages }
func (f *fakePDF) Close() error                { return nil }

type fakeOpener struct {
	docs map[string]*fakePDF
}

func (o *fakeOpener) Open(path string) (pdfio.Document, error) {
	name := filepath.Base(path)
	if name == "panic.pdf" {
		panic("corrupt xref table")
	}
	doc, ok := o.docs[name]
	if !ok {
		return nil, fmt.Errorf("cannot open %s", name)
	}
	return doc, nil
}

type fakeRenderer struct {
	pageCounts map[string]int
}

func (r *fakeRenderer) Open(path string) (raster.Document, error) {
	return &fakeRaster{name: filepath.Base(path), count: r.pageCounts[filepath.Base(path)]}, nil
}

type fakeRaster struct {
	name  string
	count int
}

func (d *fakeRaster) Render(page, dpi int) ([]byte, error) {
	return []byte(fmt.Sprintf("%s/page-%d", d.name, page)), nil
}
func (d *fakeRaster) PageCount() int { return d.count }
func (d *fakeRaster) Close() error   { return nil }

type fakeEngine struct {
	results map[string]*ocr.Result
}

func (e *fakeEngine) Recognize(image []byte) (*ocr.Result, error) {
	if r, ok := e.results[string(image)]; ok {
		return r, nil
	}
	return &ocr.Result{}, nil
}
func (e *fakeEngine) Close() error { return nil }

func ocrResult(text string, confidence float64) *ocr.Result {
	var words []ocr.Word
	for i, w := range strings.Fields(text) {
		words = append(words, ocr.Word{Text: w, X: 100 + 10*i, Y: 100, Width: 40, Height: 12, Confidence: confidence})
	}
	return &ocr.Result{Text: text, Words: words, MeanConfidence: confidence}
}

// --- document construction --------------------------------------------------

const fillerText = "Articles of Association continuation and further schedule text forming part of the incorporation bundle filed with the registrar"

const sectionHeaderText = "Form CIC 36\nSECTION B: Community Interest Statement - Activities & Related Benefit"

// tableRow lays one table row's words out, four words to a line.
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

// electronicBundle builds a 36-page electronic filing with the CIC 36
// form on page 34 and a two-row Section B table.
func electronicBundle() *fakePDF {
	doc := &fakePDF{pages: make([]fakePage, 36)}
	for i := range doc.pages {
		doc.pages[i] = fakePage{text: fillerText}
	}

	doc.pages[32] = fakePage{
		text: "Section A\nThe company's activities will provide benefit to...\nresidents of the town centre and surrounding villages\n",
	}

	words := tableRow(700,
		"Running a community cafe and training kitchen",
		"The community will benefit by access to affordable nutritious meals every single day of the week")
	words = append(words, tableRow(560,
		"Operating weekly training workshops locally",
		"Local residents will gain accredited catering skills and qualifications improving employment prospects")...)

	doc.pages[33] = fakePage{
		words: words,
		text: sectionHeaderText +
			"\nIf the company makes any surplus it will be used for:\nreinvestment into the cafe and workshops\n",
	}
	return doc
}

// scannedBundle builds a filing with no text layer at all.
func scannedBundle(pages int) *fakePDF {
	doc := &fakePDF{pages: make([]fakePage, pages)}
	for i := range doc.pages {
		doc.pages[i] = fakePage{hasImages: true}
	}
	return doc
}

// --- harness ----------------------------------------------------------------

type harness struct {
	cfg       *config.Config
	processor *Processor
}

func newHarness(t *testing.T, docs map[string]*fakePDF, ocrText map[string]*ocr.Result, rasterPages map[string]int) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Workers = 2
	cfg.MaxPagesToSearch = 40
	cfg.DocumentTimeout = 5 * time.Second

	factory := func() (ocr.Engine, error) {
		return &fakeEngine{results: ocrText}, nil
	}
	logger := log.New(io.Discard, "", 0)
	processor := NewProcessor(cfg, &fakeOpener{docs: docs},
		&fakeRenderer{pageCounts: rasterPages}, factory, logger)

	return &harness{cfg: cfg, processor: processor}
}

// --- tests ------------------------------------------------------------------

func TestProcessElectronicSuccess(t *testing.T) {
	h := newHarness(t, map[string]*fakePDF{
		"12345678_newinc_2023-06-16.pdf": electronicBundle(),
	}, nil, nil)

	res := h.processor.Process(context.Background(), "/in/12345678_newinc_2023-06-16.pdf")

	require.NoError(t, res.Err)
	result := res.Result
	assert.Equal(t, structure.StatusSuccess, result.ExtractionStatus)
	assert.Equal(t, "12345678", result.CompanyNumber)
	assert.Equal(t, "2023-06-16", result.IncorporationDate)
	assert.Equal(t, "electronic", result.DocumentType)
	assert.Equal(t, 34, result.Metadata.CIC36Page)
	assert.Equal(t, "pdfplumber", result.Metadata.ExtractionMethod)
	assert.Equal(t, 36, result.Metadata.DocumentPageCount)

	require.Len(t, result.SectionB.Activities, 2)
	assert.Contains(t, result.SectionB.Activities[0].Activity, "community cafe")
	assert.Contains(t, result.SectionB.Activities[1].Activity, "training workshops")
	assert.Equal(t, "reinvestment into the cafe and workshops", result.SectionB.SurplusUse)
	assert.Contains(t, result.SectionA.Beneficiaries, "residents of the town centre")
}

func TestProcessNoCIC36Found(t *testing.T) {
	doc := &fakePDF{pages: make([]fakePage, 45)}
	for i := range doc.pages {
		doc.pages[i] = fakePage{text: fillerText}
	}
	h := newHarness(t, map[string]*fakePDF{"12345678_newinc_2023-06-16.pdf": doc}, nil, nil)

	res := h.processor.Process(context.Background(), "12345678_newinc_2023-06-16.pdf")

	require.NoError(t, res.Err)
	assert.Equal(t, structure.StatusNoCIC36Found, res.Result.ExtractionStatus)
	assert.Empty(t, res.Result.SectionB.Activities)
	assert.Equal(t, "", res.Result.SectionA.Beneficiaries)
	assert.Equal(t, 0, res.Result.Metadata.CIC36Page)
}

func TestProcessScannedLowOCRConfidence(t *testing.T) {
	name := "scan.pdf"
	pageText := sectionHeaderText + "\nWe will run community workshops for the benefit of local residents"
	ocrText := map[string]*ocr.Result{
		name + "/page-2": ocrResult(pageText, 0.2),
	}

	h := newHarness(t, map[string]*fakePDF{name: scannedBundle(6)},
		ocrText, map[string]int{name: 6})

	res := h.processor.Process(context.Background(), name)

	require.NoError(t, res.Err)
	assert.Equal(t, structure.StatusOCRQualityIssue, res.Result.ExtractionStatus)
	assert.Equal(t, "scanned", res.Result.DocumentType)
	assert.Empty(t, res.Result.SectionB.Activities)
}

func TestProcessUnopenableFile(t *testing.T) {
	h := newHarness(t, map[string]*fakePDF{}, nil, nil)

	res := h.processor.Process(context.Background(), "missing.pdf")

	require.Error(t, res.Err)
	assert.Equal(t, structure.StatusExtractionFailed, res.Result.ExtractionStatus)
}

func TestProcessPanicIsolation(t *testing.T) {
	h := newHarness(t, map[string]*fakePDF{}, nil, nil)

	res := h.processor.Process(context.Background(), "panic.pdf")

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "panic")
	assert.Equal(t, structure.StatusExtractionFailed, res.Result.ExtractionStatus)
}

func TestProcessDocumentTimeout(t *testing.T) {
	h := newHarness(t, map[string]*fakePDF{
		"12345678_newinc_2023-06-16.pdf": electronicBundle(),
	}, nil, nil)
	h.cfg.DocumentTimeout = time.Nanosecond

	res := h.processor.Process(context.Background(), "12345678_newinc_2023-06-16.pdf")

	require.Error(t, res.Err)
	assert.Equal(t, structure.StatusExtractionFailed, res.Result.ExtractionStatus)
}

func TestRunnerBatchIsolation(t *testing.T) {
	good := "12345678_newinc_2023-06-16.pdf"
	empty := "87654321_newinc_2023-07-01.pdf"

	emptyDoc := &fakePDF{pages: make([]fakePage, 20)}
	for i := range emptyDoc.pages {
		emptyDoc.pages[i] = fakePage{text: fillerText}
	}

	h := newHarness(t, map[string]*fakePDF{
		good:  electronicBundle(),
		empty: emptyDoc,
	}, nil, nil)

	outDir := t.TempDir()
	writer, err := NewWriter(outDir, false, time.Now())
	require.NoError(t, err)

	index, err := OpenRunIndex(filepath.Join(writer.RunDir(), "results.db"))
	require.NoError(t, err)
	defer index.Close()

	runner := NewRunner(h.cfg, h.processor, writer, index, log.New(io.Discard, "", 0))
	summary, err := runner.Run(context.Background(), []string{good, empty, "panic.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.BatchInfo.TotalDocuments)
	assert.Equal(t, 1, summary.BatchInfo.Successful)
	assert.Equal(t, 1, summary.BatchInfo.Failed)
	assert.Equal(t, 1, summary.BatchInfo.NoData)
	assert.Equal(t, 2, summary.BatchInfo.TotalActivities)
	assert.Equal(t, 1, summary.BatchInfo.StatusCounts[structure.StatusNoCIC36Found])

	// Every document produced a result file.
	for _, stem := range []string{"12345678_newinc_2023-06-16", "87654321_newinc_2023-07-01", "panic"} {
		_, err := os.Stat(filepath.Join(writer.RunDir(), stem+".json"))
		assert.NoError(t, err, "missing result for %s", stem)
	}
	_, err = os.Stat(filepath.Join(writer.RunDir(), "batch_summary.json"))
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(writer.LogDir(), "failed_documents.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)

	failed, err := index.FailedDocuments()
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	counts, err := index.StatusCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[structure.StatusSuccess])
}

func TestRunnerEmptyBatch(t *testing.T) {
	h := newHarness(t, map[string]*fakePDF{}, nil, nil)

	writer, err := NewWriter(t.TempDir(), false, time.Now())
	require.NoError(t, err)

	runner := NewRunner(h.cfg, h.processor, writer, nil, log.New(io.Discard, "", 0))
	summary, err := runner.Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.BatchInfo.TotalDocuments)
}

func TestExtractHybridMergesPaths(t *testing.T) {
	// Page 2 carries the header and table in the text layer; page 3 is
	// an image-only continuation.
	name := "hybrid.pdf"

	doc := &fakePDF{pages: make([]fakePage, 4)}
	doc.pages[0] = fakePage{text: fillerText}
	doc.pages[1] = fakePage{
		words: tableRow(700,
			"Running a community cafe and training kitchen",
			"The community will benefit by access to affordable nutritious meals every single day of the week"),
		text: sectionHeaderText + "\n" + fillerText,
	}
	doc.pages[2] = fakePage{hasImages: true}
	doc.pages[3] = fakePage{hasImages: true}

	continuation := "If the company makes any surplus it will be used for:\nexpanding the training kitchen for the community\nSection C"
	ocrText := map[string]*ocr.Result{
		name + "/page-3": ocrResult(continuation, 0.9),
	}

	h := newHarness(t, map[string]*fakePDF{name: doc}, ocrText, map[string]int{name: 4})

	res := h.processor.Process(context.Background(), name)

	require.NoError(t, res.Err)
	result := res.Result
	assert.Equal(t, "hybrid", result.DocumentType)
	assert.Equal(t, structure.StatusSuccess, result.ExtractionStatus)
	require.NotEmpty(t, result.SectionB.Activities)
	assert.Contains(t, result.SectionB.Activities[0].Activity, "community cafe")
	assert.Equal(t, "expanding the training kitchen for the community", result.SectionB.SurplusUse)
}
