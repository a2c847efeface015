package plugins

import (
	"progenai/internal/domain"
	"progenai/internal/infra"
)

// Apply runs the active plugins over text. Categories run in
// domain.PluginCategories order and names in their stored order. Missing
// plugins and failing transforms are logged and skipped; Apply never fails.
func Apply(sandbox *Sandbox, logger infra.Logger, text string, sel domain.ActiveSelection, reg domain.PluginRegistry) string {
	current := text
	for _, category := range domain.PluginCategories {
		for _, name := range sel[category] {
			plugin, ok := reg.Lookup(category, name)
			if !ok {
				logger.Warn().
					Str("category", string(category)).
					Str("plugin", name).
					Msg("plugins: active plugin not found, skipping")
				continue
			}
			next, err := sandbox.Run(plugin.TransformCode, current, plugin.Config)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("category", string(category)).
					Str("plugin", name).
					Msg("plugins: transform failed, text left unchanged")
				continue
			}
			current = next
		}
	}
	return current
}
