package app

import (
	"path/filepath"
	"strings"

	"feedstock/internal/types"
)

// applyRecipeDefaults fills unset render inputs from the recipe's
// defaults section.  Relative default paths resolve against the recipe
// file; explicit flag values always win.
func applyRecipeDefaults(req RenderRequest, recipePath string, defaults types.RecipeDefaults) RenderRequest {
	baseDir := filepath.Dir(recipePath)
	if strings.TrimSpace(req.ChannelIndex) == "" && defaults.ChannelIndex != "" {
		req.ChannelIndex = resolveDefaultPath(baseDir, defaults.ChannelIndex)
	}
	if strings.TrimSpace(req.OutputDir) == "" && defaults.Output != "" {
		req.OutputDir = resolveDefaultPath(baseDir, defaults.Output)
	}
	return req
}

func resolveDefaultPath(baseDir string, value string) string {
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}
