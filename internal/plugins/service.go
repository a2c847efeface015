package plugins

import (
	"context"
	"fmt"
	"strings"

	"progenai/internal/domain"
	"progenai/internal/infra"
	"progenai/internal/store"
)

// Options configures a Service.
type Options struct {
	Preferences *store.Preferences
	Sandbox     *Sandbox
	Logger      *infra.Logger
}

// Service manages the persisted plugin registry and active selection and
// applies them to input text.
type Service struct {
	prefs   *store.Preferences
	sandbox *Sandbox
	logger  infra.Logger
}

func NewService(opts Options) *Service {
	sandbox := opts.Sandbox
	if sandbox == nil {
		sandbox = NewSandbox()
	}
	return &Service{
		prefs:   opts.Preferences,
		sandbox: sandbox,
		logger:  infra.OrNop(opts.Logger),
	}
}

// State returns the registry and active selection.
func (s *Service) State(ctx context.Context) (domain.PluginRegistry, domain.ActiveSelection, error) {
	reg, err := s.prefs.Plugins(ctx)
	if err != nil {
		return nil, nil, err
	}
	sel, err := s.prefs.ActiveSelection(ctx)
	if err != nil {
		return nil, nil, err
	}
	return reg, sel, nil
}

// Create validates and stores a new plugin. Names are unique within a
// category and the code must compile in the sandbox.
func (s *Service) Create(ctx context.Context, p domain.Plugin) (domain.Plugin, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.TransformCode = strings.TrimSpace(p.TransformCode)
	if !p.Category.Valid() {
		return domain.Plugin{}, domain.Validation("create plugin", "unknown category "+string(p.Category))
	}
	if p.Name == "" {
		return domain.Plugin{}, domain.Validation("create plugin", "name is required")
	}
	if p.TransformCode == "" {
		return domain.Plugin{}, domain.Validation("create plugin", "transform code is required")
	}
	if _, err := s.sandbox.Compile(p.TransformCode); err != nil {
		return domain.Plugin{}, domain.Validation("create plugin", err.Error())
	}
	if p.Config == nil {
		p.Config = map[string]any{}
	}
	err := s.prefs.UpdatePlugins(ctx, func(reg domain.PluginRegistry, sel domain.ActiveSelection) (domain.PluginRegistry, domain.ActiveSelection, error) {
		if _, exists := reg.Lookup(p.Category, p.Name); exists {
			return nil, nil, domain.Validation("create plugin", fmt.Sprintf("plugin %q already exists in %s", p.Name, p.Category))
		}
		reg[p.Category] = append(reg[p.Category], p)
		return reg, nil, nil
	})
	if err != nil {
		return domain.Plugin{}, err
	}
	s.logger.Info().Str("category", string(p.Category)).Str("plugin", p.Name).Msg("plugins: created")
	return p, nil
}

// Delete removes a plugin from the registry and from the active selection.
func (s *Service) Delete(ctx context.Context, category domain.PluginCategory, name string) error {
	err := s.prefs.UpdatePlugins(ctx, func(reg domain.PluginRegistry, sel domain.ActiveSelection) (domain.PluginRegistry, domain.ActiveSelection, error) {
		if _, ok := reg.Lookup(category, name); !ok {
			return nil, nil, domain.ErrNotFound
		}
		kept := make([]domain.Plugin, 0, len(reg[category]))
		for _, p := range reg[category] {
			if p.Name != name {
				kept = append(kept, p)
			}
		}
		reg[category] = kept
		sel[category] = without(sel[category], name)
		return reg, sel, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("category", string(category)).Str("plugin", name).Msg("plugins: deleted")
	return nil
}

// Activate appends name to the category's active list. Activating an active
// plugin is a no-op.
func (s *Service) Activate(ctx context.Context, category domain.PluginCategory, name string) error {
	return s.prefs.UpdatePlugins(ctx, func(reg domain.PluginRegistry, sel domain.ActiveSelection) (domain.PluginRegistry, domain.ActiveSelection, error) {
		if _, ok := reg.Lookup(category, name); !ok {
			return nil, nil, domain.ErrNotFound
		}
		if sel.Contains(category, name) {
			return nil, nil, nil
		}
		sel[category] = append(sel[category], name)
		return nil, sel, nil
	})
}

func (s *Service) Deactivate(ctx context.Context, category domain.PluginCategory, name string) error {
	return s.prefs.UpdatePlugins(ctx, func(reg domain.PluginRegistry, sel domain.ActiveSelection) (domain.PluginRegistry, domain.ActiveSelection, error) {
		if !sel.Contains(category, name) {
			return nil, nil, nil
		}
		sel[category] = without(sel[category], name)
		return nil, sel, nil
	})
}

// Apply loads the current plugin state and runs the pipeline over text. A
// store failure is logged and the text is returned unchanged.
func (s *Service) Apply(ctx context.Context, text string) string {
	reg, sel, err := s.State(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("plugins: load state failed, skipping pipeline")
		return text
	}
	if sel.Count() == 0 {
		return text
	}
	return Apply(s.sandbox, s.logger, text, sel, reg)
}

func without(names []string, name string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
