package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"feedstock/internal/types"
)

func baseRecipe() types.Recipe {
	return types.Recipe{
		APIVersion: "v1",
		Kind:       types.RecipeKindRecipe,
		Package:    types.PackageInfo{Name: "geomdl", Version: "5.3.1"},
		Requirements: types.Requirements{
			Run: []string{"numpy"},
		},
	}
}

func TestComposeMergesVariantPins(t *testing.T) {
	recipe := baseRecipe()
	variants := []types.Recipe{
		{
			Kind:    types.RecipeKindVariant,
			Package: types.PackageInfo{Name: "py39"},
			Pins:    map[string]string{"python": ">=3.9,<3.10", "numpy": "==1.19.5"},
		},
		{
			Kind:    types.RecipeKindVariant,
			Package: types.PackageInfo{Name: "py310"},
			Pins:    map[string]string{"python": ">=3.10,<3.11"},
		},
	}

	composed, err := NewVariantComposer().Compose(t.Context(), recipe, variants)
	require.NoError(t, err)
	// Later variants win per pin key.
	if diff := cmp.Diff(">=3.10,<3.11", composed.Pins["python"]); diff != "" {
		t.Fatalf("unexpected python pin (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("==1.19.5", composed.Pins["numpy"]); diff != "" {
		t.Fatalf("unexpected numpy pin (-want +got):\n%s", diff)
	}
}

func TestComposeRecipePinsWin(t *testing.T) {
	recipe := baseRecipe()
	recipe.Pins = map[string]string{"numpy": "==1.21.6"}
	variants := []types.Recipe{
		{
			Kind:    types.RecipeKindVariant,
			Package: types.PackageInfo{Name: "legacy"},
			Pins:    map[string]string{"numpy": "==1.19.5"},
		},
	}

	composed, err := NewVariantComposer().Compose(t.Context(), recipe, variants)
	require.NoError(t, err)
	require.Equal(t, "==1.21.6", composed.Pins["numpy"])
}

func TestComposeLeavesVariantRequirementsToBuilder(t *testing.T) {
	recipe := baseRecipe()
	variants := []types.Recipe{
		{
			Kind:    types.RecipeKindVariant,
			Package: types.PackageInfo{Name: "extra"},
			Requirements: types.Requirements{
				Test: []string{"pytest"},
			},
			Directives: []types.PinDirective{
				{Dependency: "conda:numpy", Action: "relax", Reason: "test", Owner: "team"},
			},
		},
	}

	composed, err := NewVariantComposer().Compose(t.Context(), recipe, variants)
	require.NoError(t, err)
	// Variant requirement entries reach the resolver through the
	// requirement builder at variant priority, not at recipe priority.
	require.NotContains(t, composed.Requirements.Test, "pytest")
	require.Len(t, composed.Directives, 1)
}

func TestComposeDoesNotMutateInput(t *testing.T) {
	recipe := baseRecipe()
	recipe.Directives = []types.PinDirective{
		{Dependency: "conda:numpy", Action: "relax", Reason: "legacy", Owner: "team"},
	}
	variants := []types.Recipe{
		{
			Kind:    types.RecipeKindVariant,
			Package: types.PackageInfo{Name: "extra"},
			Requirements: types.Requirements{
				Run: []string{"six"},
			},
			Directives: []types.PinDirective{
				{Dependency: "conda:six", Action: "block", Reason: "test", Owner: "team"},
			},
		},
	}

	_, err := NewVariantComposer().Compose(t.Context(), recipe, variants)
	require.NoError(t, err)
	require.Equal(t, []string{"numpy"}, recipe.Requirements.Run)
	require.Empty(t, recipe.Requirements.Test)
	require.Len(t, recipe.Directives, 1)
}

func TestComposeRejectsDuplicateVariants(t *testing.T) {
	recipe := baseRecipe()
	variants := []types.Recipe{
		{Kind: types.RecipeKindVariant, Package: types.PackageInfo{Name: "py39"}},
		{Kind: types.RecipeKindVariant, Package: types.PackageInfo{Name: "py39"}},
	}

	_, err := NewVariantComposer().Compose(t.Context(), recipe, variants)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate variant")
}

func TestComposeRejectsNonVariantKind(t *testing.T) {
	recipe := baseRecipe()
	variants := []types.Recipe{
		{Kind: types.RecipeKindRecipe, Package: types.PackageInfo{Name: "other"}},
	}

	_, err := NewVariantComposer().Compose(t.Context(), recipe, variants)
	require.Error(t, err)
}

func TestComposeRequiresRecipeKind(t *testing.T) {
	variant := types.Recipe{Kind: types.RecipeKindVariant, Package: types.PackageInfo{Name: "py39"}}
	_, err := NewVariantComposer().Compose(t.Context(), variant, nil)
	require.Error(t, err)
}
