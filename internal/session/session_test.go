package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func filled(n int) *Session {
	s := New()
	for i := 0; i < n; i++ {
		s.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	return s
}

func TestDeleteKeepsOrder(t *testing.T) {
	s := filled(3)

	require.NoError(t, s.Delete(0))

	assert.Equal(t, []domain.Exchange{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}, s.List())
}

func TestDeleteOutOfRange(t *testing.T) {
	s := filled(2)
	for _, i := range []int{-1, 2, 10} {
		assert.ErrorIs(t, s.Delete(i), domain.ErrIndex)
	}
	assert.Equal(t, 2, s.Len())
}

func TestListIsCopy(t *testing.T) {
	s := filled(1)
	l := s.List()
	l[0].Answer = "changed"
	assert.Equal(t, "a0", s.List()[0].Answer)
}

func TestDeleteDoesNotAliasEarlierList(t *testing.T) {
	s := filled(3)
	before := s.List()
	require.NoError(t, s.Delete(1))
	assert.Equal(t, "q1", before[1].Question)
}

func TestClear(t *testing.T) {
	s := filled(4)
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.List())
}

func TestSnapshot(t *testing.T) {
	s := filled(1)

	empty := s.Snapshot(nil)
	assert.False(t, empty.Ready)
	assert.Equal(t, []string{}, empty.Documents)
	assert.Equal(t, s.ID(), empty.ID)

	corpus := &domain.Corpus{
		Generation: 3,
		Documents:  []string{"a.pdf"},
		Chunks:     []domain.TextChunk{{Content: "x"}, {Content: "y"}},
	}
	snap := s.Snapshot(corpus)
	assert.True(t, snap.Ready)
	assert.Equal(t, 2, snap.Chunks)
	assert.Equal(t, int64(3), snap.Generation)
	assert.Len(t, snap.Exchanges, 1)

	corpus.Documents[0] = "b.pdf"
	assert.Equal(t, "a.pdf", snap.Documents[0])
}

func TestConcurrentAppend(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append("q", "a")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
