package store

import (
	"context"
	"strings"
	"sync"

	"progenai/internal/domain"
)

// Preferences is the typed view over the persisted user settings and
// plugin state. Each setter replaces the whole stored value.
type Preferences struct {
	kv KV
	mu sync.Mutex
}

func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv}
}

// KV exposes the underlying store for collaborators that share it.
func (p *Preferences) KV() KV {
	return p.kv
}

func (p *Preferences) Language(ctx context.Context) (domain.Language, error) {
	lang, _, err := p.StoredLanguage(ctx)
	return lang, err
}

// StoredLanguage also reports whether a language was ever saved.
func (p *Preferences) StoredLanguage(ctx context.Context) (domain.Language, bool, error) {
	var v string
	ok, err := GetJSON(ctx, p.kv, KeyInputLanguage, &v)
	if err != nil || !ok {
		return domain.DefaultLanguage, false, err
	}
	return domain.ParseLanguage(v), true, nil
}

func (p *Preferences) SetLanguage(ctx context.Context, lang domain.Language) error {
	if !lang.Valid() {
		return domain.Validation("settings", "unsupported language "+string(lang))
	}
	return SetJSON(ctx, p.kv, KeyInputLanguage, string(lang))
}

// CloudTTS reports whether cloud speech synthesis is enabled and which voice
// it uses.
func (p *Preferences) CloudTTS(ctx context.Context) (bool, string, error) {
	var enabled bool
	if _, err := GetJSON(ctx, p.kv, KeyCloudTTSEnabled, &enabled); err != nil {
		return false, "", err
	}
	var voice string
	if _, err := GetJSON(ctx, p.kv, KeyCloudVoiceID, &voice); err != nil {
		return enabled, "", err
	}
	return enabled, strings.TrimSpace(voice), nil
}

func (p *Preferences) SetCloudTTSEnabled(ctx context.Context, enabled bool) error {
	return SetJSON(ctx, p.kv, KeyCloudTTSEnabled, enabled)
}

func (p *Preferences) SetCloudVoiceID(ctx context.Context, voiceID string) error {
	return SetJSON(ctx, p.kv, KeyCloudVoiceID, strings.TrimSpace(voiceID))
}

// Plugins returns the registry, with every category present.
func (p *Preferences) Plugins(ctx context.Context) (domain.PluginRegistry, error) {
	reg := domain.PluginRegistry{}
	if _, err := GetJSON(ctx, p.kv, KeyPlugins, &reg); err != nil {
		return nil, err
	}
	for _, c := range domain.PluginCategories {
		if reg[c] == nil {
			reg[c] = []domain.Plugin{}
		}
	}
	return reg, nil
}

func (p *Preferences) SetPlugins(ctx context.Context, reg domain.PluginRegistry) error {
	return SetJSON(ctx, p.kv, KeyPlugins, reg)
}

// ActiveSelection returns the active plugin names, with every category present.
func (p *Preferences) ActiveSelection(ctx context.Context) (domain.ActiveSelection, error) {
	sel := domain.ActiveSelection{}
	if _, err := GetJSON(ctx, p.kv, KeyActivePlugins, &sel); err != nil {
		return nil, err
	}
	for _, c := range domain.PluginCategories {
		if sel[c] == nil {
			sel[c] = []string{}
		}
	}
	return sel, nil
}

func (p *Preferences) SetActiveSelection(ctx context.Context, sel domain.ActiveSelection) error {
	return SetJSON(ctx, p.kv, KeyActivePlugins, sel)
}

// UpdatePlugins loads the registry and selection, applies fn, and writes
// back whichever values fn changed. The selection is written first so a
// failure never leaves a name pointing at a removed plugin; if the registry
// write fails the selection is restored.
func (p *Preferences) UpdatePlugins(ctx context.Context, fn func(domain.PluginRegistry, domain.ActiveSelection) (domain.PluginRegistry, domain.ActiveSelection, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	reg, err := p.Plugins(ctx)
	if err != nil {
		return err
	}
	sel, err := p.ActiveSelection(ctx)
	if err != nil {
		return err
	}
	nextReg, nextSel, err := fn(reg.Clone(), sel.Clone())
	if err != nil {
		return err
	}
	if nextSel != nil {
		if err := p.SetActiveSelection(ctx, nextSel); err != nil {
			return err
		}
	}
	if nextReg != nil {
		if err := p.SetPlugins(ctx, nextReg); err != nil {
			if nextSel != nil {
				_ = p.SetActiveSelection(ctx, sel)
			}
			return err
		}
	}
	return nil
}
