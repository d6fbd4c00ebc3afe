package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderWritesOutputs(t *testing.T) {
	fixture := setupWorkspace(t)
	service := newTestService()

	result, err := service.Render(t.Context(), RenderRequest{
		RecipePath:   fixture.RecipePath,
		ChannelIndex: fixture.ChannelIndex,
		OutputDir:    fixture.OutputDir,
	})
	require.NoError(t, err)
	require.Equal(t, "geomdl", result.PackageName)
	require.Equal(t, "5.3.1", result.Version)
	require.True(t, strings.HasPrefix(result.BuildID, "geomdl-"))
	require.Equal(t, fixture.OutputDir, result.OutputDir)
	require.Greater(t, result.LockCount, 0)

	lock := readOutputFile(t, fixture.OutputDir, "render.lock")
	require.Contains(t, lock, "host python=3.10.8")
	require.Contains(t, lock, "host setuptools=65.5.0")
	require.Contains(t, lock, "run numpy=1.21.6")

	rendered := readOutputFile(t, fixture.OutputDir, "recipe.rendered.yaml")
	require.Contains(t, rendered, "name: geomdl")

	intent := readOutputFile(t, fixture.OutputDir, "upload.intent")
	require.Contains(t, intent, "build_id="+result.BuildID)
	require.Contains(t, intent, "channel=internal")
	require.Contains(t, intent, "created_at=2026-08-20T00:00:00Z")

	resolved := readOutputFile(t, fixture.OutputDir, "requirements.resolved")
	require.Contains(t, resolved, "conda,run,numpy==1.21.6")
	require.Contains(t, resolved, "pip,test,pytest==7.4.0")
}

const legacyNumpyVariantYAML = `api_version: v1
kind: variant
package:
  name: legacy-numpy
requirements:
  run:
    - numpy ==1.19.5
`

func TestRenderRecipeConstraintOutranksVariant(t *testing.T) {
	fixture := setupWorkspace(t)
	recipeYAML := strings.Replace(flowRecipeYAML, "numpy >=1.19", "numpy ==1.21.6", 1)
	recipePath := writeWorkspaceFile(t, fixture.Dir, "recipe-pinned.yaml", recipeYAML)
	variantPath := writeWorkspaceFile(t, fixture.Dir, "variants/legacy.yaml", legacyNumpyVariantYAML)

	result, err := newTestService().Render(t.Context(), RenderRequest{
		RecipePath:   recipePath,
		Variants:     []string{variantPath},
		ChannelIndex: fixture.ChannelIndex,
		OutputDir:    fixture.OutputDir,
	})
	require.NoError(t, err)
	require.Greater(t, result.LockCount, 0)

	// The variant's conflicting numpy constraint yields to the
	// recipe's instead of aborting the render.
	lock := readOutputFile(t, fixture.OutputDir, "render.lock")
	require.Contains(t, lock, "run numpy=1.21.6")
}

func TestRenderBuildIDIsDeterministic(t *testing.T) {
	fixture := setupWorkspace(t)
	service := newTestService()
	request := RenderRequest{
		RecipePath:   fixture.RecipePath,
		ChannelIndex: fixture.ChannelIndex,
		OutputDir:    fixture.OutputDir,
	}

	first, err := service.Render(t.Context(), request)
	require.NoError(t, err)
	second, err := service.Render(t.Context(), request)
	require.NoError(t, err)
	require.Equal(t, first.BuildID, second.BuildID)
}

func TestRenderRequiresRecipePath(t *testing.T) {
	_, err := newTestService().Render(t.Context(), RenderRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "recipe path")
}

func TestRenderRequiresChannelIndex(t *testing.T) {
	fixture := setupWorkspace(t)
	_, err := newTestService().Render(t.Context(), RenderRequest{
		RecipePath: fixture.RecipePath,
		OutputDir:  fixture.OutputDir,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "channel index")
}

func TestRenderUsesRecipeDefaults(t *testing.T) {
	fixture := setupWorkspace(t)
	recipeYAML := strings.Replace(flowRecipeYAML, "channel:\n", "defaults:\n  channel_index: channel-index.yaml\n  output: out\nchannel:\n", 1)
	recipePath := writeWorkspaceFile(t, fixture.Dir, "recipe-defaults.yaml", recipeYAML)

	result, err := newTestService().Render(t.Context(), RenderRequest{RecipePath: recipePath})
	require.NoError(t, err)
	require.Equal(t, fixture.OutputDir, result.OutputDir)
}

func TestRenderRejectsUnknownStage(t *testing.T) {
	fixture := setupWorkspace(t)
	recipeYAML := strings.Replace(flowRecipeYAML, "script: [sdist, install]", "script: [wheel]", 1)
	recipePath := writeWorkspaceFile(t, fixture.Dir, "recipe-bad.yaml", recipeYAML)

	_, err := newTestService().Render(t.Context(), RenderRequest{
		RecipePath:   recipePath,
		ChannelIndex: fixture.ChannelIndex,
		OutputDir:    fixture.OutputDir,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported build stage")
}
