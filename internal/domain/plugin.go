package domain

import (
	"strings"
	"time"
)

// PluginCategory groups plugins; categories are applied in the order of
// PluginCategories.
type PluginCategory string

const (
	CategoryFilter   PluginCategory = "filter"
	CategoryStyle    PluginCategory = "style"
	CategoryGenre    PluginCategory = "genre"
	CategoryEnhancer PluginCategory = "enhancer"
)

var PluginCategories = []PluginCategory{CategoryFilter, CategoryStyle, CategoryGenre, CategoryEnhancer}

func (c PluginCategory) Valid() bool {
	switch c {
	case CategoryFilter, CategoryStyle, CategoryGenre, CategoryEnhancer:
		return true
	}
	return false
}

// ParsePluginCategory accepts singular or plural forms ("filters").
func ParsePluginCategory(v string) (PluginCategory, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	c := PluginCategory(strings.TrimSuffix(v, "s"))
	return c, c.Valid()
}

// Plugin is a user-defined text transform. TransformCode is an expression
// evaluated in the plugin sandbox with `prompt` and `config` in scope.
type Plugin struct {
	Category      PluginCategory `json:"category"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	TransformCode string         `json:"code"`
	Config        map[string]any `json:"config"`
}

// PluginRegistry holds every plugin, keyed by category, in creation order.
type PluginRegistry map[PluginCategory][]Plugin

// Lookup finds a plugin by category and name.
func (r PluginRegistry) Lookup(category PluginCategory, name string) (Plugin, bool) {
	for _, p := range r[category] {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// Clone returns a deep enough copy for whole-value replacement.
func (r PluginRegistry) Clone() PluginRegistry {
	out := make(PluginRegistry, len(r))
	for c, list := range r {
		out[c] = append([]Plugin(nil), list...)
	}
	return out
}

// ActiveSelection lists, per category, the names of plugins currently
// applied, in application order.
type ActiveSelection map[PluginCategory][]string

func (s ActiveSelection) Contains(category PluginCategory, name string) bool {
	for _, n := range s[category] {
		if n == name {
			return true
		}
	}
	return false
}

func (s ActiveSelection) Clone() ActiveSelection {
	out := make(ActiveSelection, len(s))
	for c, names := range s {
		out[c] = append([]string(nil), names...)
	}
	return out
}

// Count returns the number of active plugins across all categories.
func (s ActiveSelection) Count() int {
	n := 0
	for _, names := range s {
		n += len(names)
	}
	return n
}

// SavedPrompt is an entry in the bounded saved-prompt history.
type SavedPrompt struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	Modality  Modality  `json:"modality"`
	Style     Style     `json:"style"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxRating is the highest star rating a saved prompt can carry.
const MaxRating = 5

// ClampRating keeps a rating within 0..MaxRating.
func ClampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > MaxRating {
		return MaxRating
	}
	return r
}
