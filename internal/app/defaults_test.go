package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"feedstock/internal/types"
)

func TestApplyRecipeDefaultsFillsUnsetValues(t *testing.T) {
	req := applyRecipeDefaults(RenderRequest{}, "/work/geomdl/recipe.yaml", types.RecipeDefaults{
		ChannelIndex: "channel-index.yaml",
		Output:       "out",
	})
	require.Equal(t, filepath.Join("/work/geomdl", "channel-index.yaml"), req.ChannelIndex)
	require.Equal(t, filepath.Join("/work/geomdl", "out"), req.OutputDir)
}

func TestApplyRecipeDefaultsKeepsExplicitValues(t *testing.T) {
	req := applyRecipeDefaults(RenderRequest{
		ChannelIndex: "/explicit/index.yaml",
		OutputDir:    "/explicit/out",
	}, "/work/geomdl/recipe.yaml", types.RecipeDefaults{
		ChannelIndex: "channel-index.yaml",
		Output:       "out",
	})
	require.Equal(t, "/explicit/index.yaml", req.ChannelIndex)
	require.Equal(t, "/explicit/out", req.OutputDir)
}

func TestApplyRecipeDefaultsAbsolutePaths(t *testing.T) {
	req := applyRecipeDefaults(RenderRequest{}, "/work/geomdl/recipe.yaml", types.RecipeDefaults{
		ChannelIndex: "/shared/channel-index.yaml",
	})
	require.Equal(t, "/shared/channel-index.yaml", req.ChannelIndex)
}
