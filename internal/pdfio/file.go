package pdfio

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// FileOpener is the production Opener backed by ledongthuc/pdf, with a
// relaxed pdfcpu validation pass up front to reject malformed files early.
type FileOpener struct {
	maxFileSize int64
}

// NewFileOpener creates an opener with the given file size limit.
func NewFileOpener(maxFileSize int64) *FileOpener {
	return &FileOpener{maxFileSize: maxFileSize}
}

// Open validates and opens a PDF file.
func (o *FileOpener) Open(path string) (Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := o.validateFile(path, fileInfo); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	return &fileDocument{
		path:   path,
		file:   f,
		reader: reader,
	}, nil
}

// validateFile performs basic checks plus a relaxed pdfcpu structural pass.
func (o *FileOpener) validateFile(path string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}

	if fileInfo.Size() > o.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), o.maxFileSize)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("pdf validation failed: %w", err)
	}

	return nil
}

// fileDocument implements Document over an open ledongthuc/pdf reader.
type fileDocument struct {
	path   string
	file   *os.File
	reader *pdf.Reader
}

func (d *fileDocument) PageCount() int {
	return d.reader.NumPage()
}

func (d *fileDocument) PageText(page int) (string, error) {
	if page < 1 || page > d.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range (1-%d)", page, d.reader.NumPage())
	}

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		// A page with an unreadable text layer is treated as image-only,
		// not as a document failure.
		return "", nil
	}

	return text, nil
}

func (d *fileDocument) PageWords(page int) ([]Word, error) {
	if page < 1 || page > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, d.reader.NumPage())
	}

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}

	return assembleWords(p.Content().Text), nil
}

// assembleWords merges the content stream's text items (often single
// glyphs) into words. A new word starts on a vertical jump, a
// horizontal gap wider than a typical inter-glyph space, or an explicit
// space item.
func assembleWords(items []pdf.Text) []Word {
	var words []Word
	var cur *Word

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			words = append(words, *cur)
		}
		cur = nil
	}

	for _, t := range items {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}

		gapLimit := t.FontSize * 0.3
		if gapLimit <= 0 {
			gapLimit = 2
		}

		if cur != nil {
			sameLine := abs(t.Y-cur.Y) <= t.FontSize*0.5
			adjacent := t.X >= cur.X && t.X-(cur.X+cur.W) <= gapLimit
			if sameLine && adjacent {
				cur.Text += t.S
				cur.W = (t.X + t.W) - cur.X
				continue
			}
			flush()
		}

		w := Word{Text: t.S, X: t.X, Y: t.Y, W: t.W}
		cur = &w
	}
	flush()

	return words
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (d *fileDocument) PageHasImages(page int) bool {
	defer func() {
		// Malformed resource dictionaries must not take the document down.
		_ = recover()
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return false
	}

	resources := p.V.Key("Resources")
	if resources.IsNull() {
		return false
	}

	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return false
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		subtype := obj.Key("Subtype")
		if !subtype.IsNull() && subtype.Name() == "Image" {
			return true
		}
	}

	return false
}

func (d *fileDocument) Close() error {
	return d.file.Close()
}
