// Package session holds the single in-memory conversation of a process.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/domain"
)

// Snapshot is an immutable view of the session after a user action.
type Snapshot struct {
	ID         string            `json:"id"`
	Exchanges  []domain.Exchange `json:"exchanges"`
	Documents  []string          `json:"documents"`
	Chunks     int               `json:"chunks"`
	Ready      bool              `json:"ready"`
	Generation int64             `json:"generation"`
	TakenAt    time.Time         `json:"taken_at"`
}

// Session is the ordered question/answer history.
type Session struct {
	id string

	mu        sync.Mutex
	exchanges []domain.Exchange
}

func New() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Append(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, domain.Exchange{Question: question, Answer: answer})
}

// Delete removes the exchange at position i of List.
func (s *Session) Delete(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.exchanges) {
		return fmt.Errorf("%w: %d (have %d)", domain.ErrIndex, i, len(s.exchanges))
	}
	s.exchanges = append(s.exchanges[:i:i], s.exchanges[i+1:]...)
	return nil
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = nil
}

// List returns a copy of the history in chronological order.
func (s *Session) List() []domain.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exchanges)
}

// Snapshot captures the history together with the published corpus, which
// may be nil before the first successful upload.
func (s *Session) Snapshot(corpus *domain.Corpus) Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Exchanges: s.List(),
		Documents: []string{},
		TakenAt:   time.Now(),
	}
	if corpus != nil {
		snap.Documents = append(snap.Documents, corpus.Documents...)
		snap.Chunks = len(corpus.Chunks)
		snap.Ready = len(corpus.Chunks) > 0
		snap.Generation = corpus.Generation
	}
	return snap
}
