package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine on the tesseract C library via gosseract.
type TesseractEngine struct {
	client *gosseract.Client
	closed bool
}

// NewTesseractEngine creates an engine configured for English form text.
func NewTesseractEngine() (Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &TesseractEngine{client: client}, nil
}

// Recognize runs OCR on a page image and returns linear text plus
// word-level boxes and confidences.
func (e *TesseractEngine) Recognize(image []byte) (*Result, error) {
	if e.closed {
		return nil, fmt.Errorf("ocr engine is closed")
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image cannot be empty")
	}

	if err := e.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return nil, fmt.Errorf("ocr recognition failed: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR word boxes: %w", err)
	}

	result := &Result{Text: text}
	var confidenceSum float64
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		// gosseract reports confidence on a 0-100 scale.
		confidence := box.Confidence / 100.0
		result.Words = append(result.Words, Word{
			Text:       word,
			X:          box.Box.Min.X,
			Y:          box.Box.Min.Y,
			Width:      box.Box.Dx(),
			Height:     box.Box.Dy(),
			Confidence: confidence,
		})
		confidenceSum += confidence
	}

	if len(result.Words) > 0 {
		result.MeanConfidence = confidenceSum / float64(len(result.Words))
	}

	return result, nil
}

// Close releases the tesseract client.
func (e *TesseractEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.client.Close()
}
