// Package extract converts uploaded binary documents into gradable plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// MinReadableTextLength is the minimum number of extracted characters for a
// document to count as readable. Catches image-only PDFs that parse without
// error but yield no usable text.
const MinReadableTextLength = 10

// Result classifies an extraction outcome. Extraction never fails hard:
// malformed input is a data-quality outcome, reported as Readable == false.
type Result struct {
	Text     string
	Readable bool
}

// Extractor converts a raw document into plain text.
type Extractor interface {
	Extract(fileName string, data []byte) Result
}

// DocumentExtractor handles PDF and plain-text documents.
type DocumentExtractor struct {
	logger zerolog.Logger
}

// NewDocumentExtractor builds an extractor with the given logger.
func NewDocumentExtractor(logger zerolog.Logger) *DocumentExtractor {
	return &DocumentExtractor{
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract pulls plain text out of the document and classifies readability.
func (e *DocumentExtractor) Extract(fileName string, data []byte) Result {
	mime := mimetype.Detect(data)

	var (
		text string
		err  error
	)

	switch {
	case mime.Is("application/pdf"):
		text, err = extractPDFText(data)
	case strings.HasPrefix(mime.String(), "text/"):
		text = string(data)
	default:
		err = fmt.Errorf("unsupported document type %s", mime.String())
	}

	if err != nil {
		e.logger.Warn().Err(err).Str("file_name", fileName).Msg("document extraction failed")
		return Result{Readable: false}
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinReadableTextLength {
		e.logger.Warn().Str("file_name", fileName).Msg("document appears image-only or empty")
		return Result{Text: trimmed, Readable: false}
	}

	return Result{Text: trimmed, Readable: true}
}

// extractPDFText reads every page of the PDF. The parser panics on some
// malformed files, so the recover turns that into a plain error.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}

	return buf.String(), nil
}
