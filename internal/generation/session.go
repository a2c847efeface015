package generation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"progenai/internal/domain"
)

// Failure marks a cycle whose optimization call failed. It replaces the
// current result until the next successful cycle.
type Failure struct {
	Kind    domain.Kind `json:"kind,omitempty"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	Result  *domain.GenerationResult `json:"result"`
	Failure *Failure                 `json:"failure,omitempty"`
	Answers domain.AnswerSet         `json:"answers"`
	Chat    []domain.ChatEntry       `json:"chat"`
	Busy    bool                     `json:"busy"`
}

// Session holds the shared state of the orchestrator: the current result,
// the pending answers to its questions and the chat history. Every
// generation or refinement takes a cycle number; only the latest cycle may
// replace the current result.
type Session struct {
	mu       sync.Mutex
	cycle    uint64
	inflight map[uint64]struct{}
	current  *domain.GenerationResult
	failure  *Failure
	answers  domain.AnswerSet
	chat     []domain.ChatEntry
	now      func() time.Time
}

func NewSession() *Session {
	return &Session{
		inflight: make(map[uint64]struct{}),
		answers:  make(domain.AnswerSet),
		now:      time.Now,
	}
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	s.inflight[s.cycle] = struct{}{}
	return s.cycle
}

func (s *Session) end(cycle uint64) {
	s.mu.Lock()
	delete(s.inflight, cycle)
	s.mu.Unlock()
}

// publish replaces the current result when cycle is still the latest.
// Pending answers are cleared whenever a different result takes over.
func (s *Session) publish(cycle uint64, r *domain.GenerationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle {
		return false
	}
	if s.current == nil || s.current.ID != r.ID {
		s.answers = make(domain.AnswerSet)
	}
	s.current = r.Clone()
	s.failure = nil
	return true
}

// fail records the failure marker in place of the current result.
func (s *Session) fail(cycle uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle {
		return false
	}
	s.current = nil
	s.answers = make(domain.AnswerSet)
	s.failure = &Failure{Kind: domain.KindOf(err), Message: err.Error(), At: s.now().UTC()}
	return true
}

func (s *Session) isCurrent(cycle uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cycle == s.cycle
}

func (s *Session) appendChat(role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, domain.ChatEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	})
}

// Current returns a copy of the current result, or nil.
func (s *Session) Current() *domain.GenerationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Answers returns a copy of the pending answers.
func (s *Session) Answers() domain.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.AnswerSet, len(s.answers))
	for q, a := range s.answers {
		out[q] = a
	}
	return out
}

// SetAnswer records the answer to one of the current result's questions.
// A blank answer removes it.
func (s *Session) SetAnswer(question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Validation("answer", "no current result")
	}
	found := false
	for _, q := range s.current.RefinementQuestions {
		if q == question {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("generation: question %q: %w", question, domain.ErrNotFound)
	}
	if strings.TrimSpace(answer) == "" {
		delete(s.answers, question)
		return nil
	}
	s.answers[question] = answer
	return nil
}

// History returns the chat log in append order.
func (s *Session) History() []domain.ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatEntry(nil), s.chat...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Result:  s.current.Clone(),
		Answers: make(domain.AnswerSet, len(s.answers)),
		Chat:    append(make([]domain.ChatEntry, 0, len(s.chat)), s.chat...),
		Busy:    len(s.inflight) > 0,
	}
	for q, a := range s.answers {
		snap.Answers[q] = a
	}
	if s.failure != nil {
		f := *s.failure
		snap.Failure = &f
	}
	return snap
}
