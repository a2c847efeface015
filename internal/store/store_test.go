package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"progenai/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()
	if _, ok, err := fs.Get(ctx, KeyInputLanguage); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := fs.Set(ctx, KeyInputLanguage, []byte(`"hi"`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := fs.Set(ctx, KeyInputLanguage, []byte(`"ta"`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, ok, err := fs.Get(ctx, KeyInputLanguage)
	if err != nil || !ok || string(got) != `"ta"` {
		t.Fatalf("Get = %q, %v, %v", got, ok, err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	for _, key := range []string{"../escape", "a/b", `a\b`, " "} {
		if err := fs.Set(context.Background(), key, []byte("1")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

type stubExecutor struct {
	values map[string]string
	err    error
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	if strings.Contains(query, "INSERT INTO progenai_kv") {
		s.values[args[0].(string)] = args[1].(string)
	}
	return pgconn.CommandTag{}, nil
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	v, ok := s.values[args[0].(string)]
	return stubRow{value: v, found: ok, err: s.err}
}

type stubRow struct {
	value string
	found bool
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.found {
		return pgx.ErrNoRows
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.value
	return nil
}

func TestPGStore(t *testing.T) {
	exec := &stubExecutor{values: map[string]string{}}
	pg := NewPGStore(exec)
	ctx := context.Background()
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if _, ok, err := pg.Get(ctx, KeyCloudVoiceID); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := SetJSON(ctx, pg, KeyCloudVoiceID, "voice-1"); err != nil {
		t.Fatalf("SetJSON error: %v", err)
	}
	var voice string
	if ok, err := GetJSON(ctx, pg, KeyCloudVoiceID, &voice); err != nil || !ok || voice != "voice-1" {
		t.Fatalf("GetJSON = %q, %v, %v", voice, ok, err)
	}
}

func TestPGStorePropagatesErrors(t *testing.T) {
	pg := NewPGStore(&stubExecutor{values: map[string]string{}, err: errors.New("boom")})
	if _, _, err := pg.Get(context.Background(), KeyPlugins); err == nil {
		t.Fatalf("expected error")
	}
	if err := pg.Set(context.Background(), KeyPlugins, []byte("{}")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSavedPromptsEvictsOldest(t *testing.T) {
	saved := NewSavedPrompts(NewMemoryStore())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	saved.now = func() time.Time { return base }
	ctx := context.Background()

	for i := 0; i < MaxSavedPrompts+1; i++ {
		if _, err := saved.Save(ctx, fmt.Sprintf("prompt %d", i), domain.ModalityText, domain.StyleSimple, 3); err != nil {
			t.Fatalf("Save %d error: %v", i, err)
		}
	}
	entries, err := saved.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(entries) != MaxSavedPrompts {
		t.Fatalf("len = %d, want %d", len(entries), MaxSavedPrompts)
	}
	if entries[0].Prompt != fmt.Sprintf("prompt %d", MaxSavedPrompts) {
		t.Fatalf("newest entry not at front: %q", entries[0].Prompt)
	}
	for _, e := range entries {
		if e.Prompt == "prompt 0" {
			t.Fatalf("oldest entry was not evicted")
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID <= entries[i].ID {
			t.Fatalf("ids not unique and increasing: %d then %d", entries[i-1].ID, entries[i].ID)
		}
	}
}

func TestSavedPromptsGetDeleteAndRating(t *testing.T) {
	saved := NewSavedPrompts(NewMemoryStore())
	ctx := context.Background()
	a, err := saved.Save(ctx, "first", domain.ModalityImage, domain.StyleCreative, 9)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if a.Rating != domain.MaxRating {
		t.Fatalf("rating not clamped: %d", a.Rating)
	}
	b, err := saved.Save(ctx, "second", domain.ModalityCode, domain.StyleTechnical, -1)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if b.Rating != 0 {
		t.Fatalf("rating not clamped: %d", b.Rating)
	}
	got, err := saved.Get(ctx, a.ID)
	if err != nil || got.Prompt != "first" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := saved.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := saved.Get(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := saved.Save(ctx, "  ", domain.ModalityCode, domain.StyleSimple, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPreferencesDefaults(t *testing.T) {
	prefs := NewPreferences(NewMemoryStore())
	ctx := context.Background()
	lang, err := prefs.Language(ctx)
	if err != nil || lang != domain.LanguageEnglish {
		t.Fatalf("Language = %q, %v", lang, err)
	}
	reg, err := prefs.Plugins(ctx)
	if err != nil {
		t.Fatalf("Plugins error: %v", err)
	}
	for _, c := range domain.PluginCategories {
		if reg[c] == nil {
			t.Fatalf("category %q missing", c)
		}
	}
	if err := prefs.SetLanguage(ctx, "fr"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := prefs.SetLanguage(ctx, domain.LanguageTelugu); err != nil {
		t.Fatalf("SetLanguage error: %v", err)
	}
	if lang, _ := prefs.Language(ctx); lang != domain.LanguageTelugu {
		t.Fatalf("Language = %q", lang)
	}
}

type failingKV struct {
	*MemoryStore
	failKey string
}

func (f failingKV) Set(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestUpdatePluginsRestoresSelectionOnRegistryFailure(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	seed := NewPreferences(mem)
	if err := seed.SetActiveSelection(ctx, domain.ActiveSelection{domain.CategoryFilter: {"trim"}}); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	prefs := NewPreferences(failingKV{MemoryStore: mem, failKey: KeyPlugins})
	err := prefs.UpdatePlugins(ctx, func(reg domain.PluginRegistry, sel domain.ActiveSelection) (domain.PluginRegistry, domain.ActiveSelection, error) {
		sel[domain.CategoryFilter] = nil
		return reg, sel, nil
	})
	if err == nil {
		t.Fatalf("expected registry write failure")
	}
	sel, err := seed.ActiveSelection(ctx)
	if err != nil {
		t.Fatalf("ActiveSelection error: %v", err)
	}
	if !sel.Contains(domain.CategoryFilter, "trim") {
		t.Fatalf("selection was not restored: %#v", sel)
	}
}
