package pdfio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyphs(y float64, startX float64, size float64, s string) []pdf.Text {
	items := make([]pdf.Text, 0, len(s))
	x := startX
	for _, r := range s {
		items = append(items, pdf.Text{S: string(r), X: x, Y: y, W: size * 0.5, FontSize: size})
		x += size * 0.5
	}
	return items
}

func TestAssembleWordsMergesGlyphs(t *testing.T) {
	words := assembleWords(glyphs(700, 50, 10, "Running"))

	require.Len(t, words, 1)
	assert.Equal(t, "Running", words[0].Text)
	assert.Equal(t, 50.0, words[0].X)
	assert.Equal(t, 700.0, words[0].Y)
	assert.InDelta(t, 35.0, words[0].W, 0.01)
}

func TestAssembleWordsSplitsOnGap(t *testing.T) {
	items := glyphs(700, 50, 10, "a")
	// Next glyph starts 20pt past the previous word's right edge, far
	// beyond the inter-glyph tolerance.
	items = append(items, glyphs(700, 75, 10, "b")...)

	words := assembleWords(items)

	require.Len(t, words, 2)
	assert.Equal(t, "a", words[0].Text)
	assert.Equal(t, "b", words[1].Text)
}

func TestAssembleWordsSplitsOnSpaceItem(t *testing.T) {
	items := glyphs(700, 50, 10, "to")
	items = append(items, pdf.Text{S: " ", X: 60, Y: 700, W: 5, FontSize: 10})
	items = append(items, glyphs(700, 65, 10, "the")...)

	words := assembleWords(items)

	require.Len(t, words, 2)
	assert.Equal(t, "to", words[0].Text)
	assert.Equal(t, "the", words[1].Text)
}

func TestAssembleWordsSplitsOnLineChange(t *testing.T) {
	items := glyphs(700, 50, 10, "up")
	items = append(items, glyphs(688, 50, 10, "down")...)

	words := assembleWords(items)

	require.Len(t, words, 2)
	assert.Equal(t, "up", words[0].Text)
	assert.Equal(t, "down", words[1].Text)
	assert.Equal(t, 688.0, words[1].Y)
}

func TestAssembleWordsEmpty(t *testing.T) {
	assert.Empty(t, assembleWords(nil))
	assert.Empty(t, assembleWords([]pdf.Text{{S: "   ", X: 10, Y: 10}}))
}

func TestFindPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o640))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.pdf"), []byte("x"), 0o640))

	paths, err := FindPDFs(dir)
	require.NoError(t, err)

	// Only top-level PDFs, sorted, absolute.
	require.Len(t, paths, 2)
	assert.Equal(t, "a.PDF", filepath.Base(paths[0]))
	assert.Equal(t, "b.pdf", filepath.Base(paths[1]))
	assert.True(t, filepath.IsAbs(paths[0]))
}

func TestFindPDFsMissingDirectory(t *testing.T) {
	_, err := FindPDFs(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)

	_, err = FindPDFs("")
	assert.Error(t, err)
}
