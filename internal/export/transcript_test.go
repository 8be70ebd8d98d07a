package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/extractor"
)

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func text(t *testing.T, data []byte) string {
	t.Helper()
	pages, err := extractor.PDFReader{}.ReadPages(context.Background(), data)
	require.NoError(t, err)
	return strings.Join(pages, "\n")
}

func TestTranscriptContainsExchanges(t *testing.T) {
	data, err := Transcript([]domain.Exchange{
		{Question: "What color is the sky?", Answer: "The sky is blue."},
		{Question: "And grass?", Answer: "Green."},
	}, []string{"sky.pdf"}, at)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	out := text(t, data)
	assert.Contains(t, out, "What color is the sky?")
	assert.Contains(t, out, "The sky is blue.")
	assert.Contains(t, out, "Green.")
	assert.Contains(t, out, "sky.pdf")
}

func TestTranscriptEmpty(t *testing.T) {
	data, err := Transcript(nil, nil, at)
	require.NoError(t, err)
	assert.Contains(t, text(t, data), EmptyHistory)
}
