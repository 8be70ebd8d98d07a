package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func reconstruct(chunks []string, overlap int) []string {
	var out []string
	for i, c := range chunks {
		f := strings.Fields(c)
		if i > 0 {
			f = f[overlap:]
		}
		out = append(out, f...)
	}
	return out
}

func TestSplitReconstructsWordSequence(t *testing.T) {
	cases := []struct {
		n, size, overlap int
	}{
		{n: 1, size: 3, overlap: 0},
		{n: 10, size: 3, overlap: 1},
		{n: 10, size: 5, overlap: 4},
		{n: 100, size: 7, overlap: 2},
		{n: 3000, size: DefaultChunkSize, overlap: DefaultOverlap},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d/size=%d/overlap=%d", tc.n, tc.size, tc.overlap), func(t *testing.T) {
			text := words(tc.n)
			chunks, err := Split(text, tc.size, tc.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, strings.Fields(text), reconstruct(chunks, tc.overlap))
			for _, c := range chunks {
				assert.LessOrEqual(t, len(strings.Fields(c)), tc.size)
			}
			for i := 1; i < len(chunks); i++ {
				prev := strings.Fields(chunks[i-1])
				cur := strings.Fields(chunks[i])
				assert.Equal(t, prev[len(prev)-tc.overlap:], cur[:tc.overlap])
			}

			again, err := Split(text, tc.size, tc.overlap)
			require.NoError(t, err)
			assert.Equal(t, chunks, again)
		})
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	chunks, err := Split("  alpha\n\tbeta   gamma\r\ndelta ", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha beta gamma", "gamma delta"}, chunks)
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split(" \n\t", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitRejectsInvalidWindow(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{5, 5}, {5, 9}, {0, 0}, {5, -1}} {
		_, err := Split(words(20), tc.size, tc.overlap)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, "size=%d overlap=%d", tc.size, tc.overlap)
	}
	_, err := NewWordChunker(200, 200)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestWordChunkerTagsSource(t *testing.T) {
	c, err := NewWordChunker(4, 1)
	require.NoError(t, err)

	chunks, err := c.Chunk(domain.DocumentText{Name: "a.pdf", Text: words(10)})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "a.pdf", ch.Source)
	}
	assert.Equal(t, "w6 w7 w8 w9", chunks[2].Content)
	assert.Equal(t, 1, c.Overlap())
}

func TestSentenceChunker(t *testing.T) {
	c, err := NewSentenceChunker(2, 1)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.DocumentText{Name: "b.docx", Text: "One. Two!  Three? Four."})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "One. Two!", chunks[0].Content)
	assert.Equal(t, "Two! Three?", chunks[1].Content)
	assert.Equal(t, "Three? Four.", chunks[2].Content)
	assert.Equal(t, "b.docx", chunks[2].Source)

	empty, err := c.Chunk(domain.DocumentText{Name: "c", Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSentenceChunkerKeepsUnterminatedTail(t *testing.T) {
	c, err := NewSentenceChunker(0, 4)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.DocumentText{Name: "d", Text: "First line. second line without stop"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "First line. second line without stop", chunks[0].Content)
}

func TestSentenceChunkerRejectsOverlapNotBelowWindow(t *testing.T) {
	for _, overlap := range []int{-1, 3, 4} {
		c, err := NewSentenceChunker(3, overlap)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, "overlap %d", overlap)
		assert.Nil(t, c)
	}
}
