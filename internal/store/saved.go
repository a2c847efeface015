package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"progenai/internal/domain"
)

// MaxSavedPrompts caps the saved-prompt history. Overflow evicts the oldest
// entries at insert time.
const MaxSavedPrompts = 50

// SavedPrompts is the bounded, newest-first saved-prompt history.
type SavedPrompts struct {
	kv     KV
	now    func() time.Time
	mu     sync.Mutex
	lastID int64
}

func NewSavedPrompts(kv KV) *SavedPrompts {
	return &SavedPrompts{kv: kv, now: time.Now}
}

// List returns the entries, newest first.
func (s *SavedPrompts) List(ctx context.Context) ([]domain.SavedPrompt, error) {
	var entries []domain.SavedPrompt
	if _, err := GetJSON(ctx, s.kv, KeySavedPrompts, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.SavedPrompt{}
	}
	return entries, nil
}

// Save prepends a new entry and trims the history to MaxSavedPrompts.
func (s *SavedPrompts) Save(ctx context.Context, prompt string, modality domain.Modality, style domain.Style, rating int) (domain.SavedPrompt, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.SavedPrompt{}, domain.Validation("save prompt", "prompt is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.List(ctx)
	if err != nil {
		return domain.SavedPrompt{}, err
	}
	now := s.now()
	entry := domain.SavedPrompt{
		ID:        s.nextID(now, entries),
		Prompt:    prompt,
		Modality:  modality,
		Style:     style,
		Rating:    domain.ClampRating(rating),
		Timestamp: now.UTC(),
	}
	entries = append([]domain.SavedPrompt{entry}, entries...)
	if len(entries) > MaxSavedPrompts {
		entries = entries[:MaxSavedPrompts]
	}
	if err := SetJSON(ctx, s.kv, KeySavedPrompts, entries); err != nil {
		return domain.SavedPrompt{}, err
	}
	return entry, nil
}

// Get returns one entry by id.
func (s *SavedPrompts) Get(ctx context.Context, id int64) (domain.SavedPrompt, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return domain.SavedPrompt{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.SavedPrompt{}, domain.ErrNotFound
}

// Delete removes one entry by id. Deleting a missing id is not an error.
func (s *SavedPrompts) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return SetJSON(ctx, s.kv, KeySavedPrompts, kept)
}

// nextID is the current unix-millisecond time, bumped past every id already
// issued or stored so ids stay unique and increasing.
func (s *SavedPrompts) nextID(now time.Time, entries []domain.SavedPrompt) int64 {
	id := now.UnixMilli()
	floor := s.lastID
	for _, e := range entries {
		if e.ID > floor {
			floor = e.ID
		}
	}
	if id <= floor {
		id = floor + 1
	}
	s.lastID = id
	return id
}
