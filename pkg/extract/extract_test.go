package extract

import (
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	extractor := NewDocumentExtractor(zerolog.New(io.Discard))

	result := extractor.Extract("essay.txt", []byte("  a perfectly readable essay body  "))
	require.True(t, result.Readable)
	require.Equal(t, "a perfectly readable essay body", result.Text)
}

func TestExtractShortTextIsUnreadable(t *testing.T) {
	extractor := NewDocumentExtractor(zerolog.New(io.Discard))

	result := extractor.Extract("stub.txt", []byte("hi"))
	require.False(t, result.Readable)
}

func TestExtractWhitespaceOnlyIsUnreadable(t *testing.T) {
	extractor := NewDocumentExtractor(zerolog.New(io.Discard))

	result := extractor.Extract("blank.txt", []byte("    \n\t   \n  "))
	require.False(t, result.Readable)
	require.Empty(t, result.Text)
}

func TestExtractUnsupportedTypeIsUnreadable(t *testing.T) {
	extractor := NewDocumentExtractor(zerolog.New(io.Discard))

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	result := extractor.Extract("photo.png", png)
	require.False(t, result.Readable)
	require.Empty(t, result.Text)
}

func TestExtractCorruptPDFNeverPanics(t *testing.T) {
	extractor := NewDocumentExtractor(zerolog.New(io.Discard))

	corrupt := []byte("%PDF-1.4\ngarbage that is not a real xref table")
	require.NotPanics(t, func() {
		result := extractor.Extract("broken.pdf", corrupt)
		require.False(t, result.Readable)
	})
}

func TestExtractLongTextAtBoundary(t *testing.T) {
	extractor := NewDocumentExtractor(zerolog.New(io.Discard))

	exact := strings.Repeat("a", MinReadableTextLength)
	result := extractor.Extract("boundary.txt", []byte(exact))
	require.True(t, result.Readable)

	short := strings.Repeat("a", MinReadableTextLength-1)
	result = extractor.Extract("boundary.txt", []byte(short))
	require.False(t, result.Readable)
}
