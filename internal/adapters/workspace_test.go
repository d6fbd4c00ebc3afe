package adapters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFindRecipes(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "geomdl/recipe.yaml", "kind: recipe\n")
	second := writeFile(t, dir, "tools/meta.yaml", "kind: recipe\n")
	writeFile(t, dir, ".git/recipe.yaml", "ignored\n")
	writeFile(t, dir, "build/recipe.yaml", "ignored\n")
	writeFile(t, dir, "geomdl/README.md", "docs\n")

	recipes, err := NewWorkspaceAdapter().FindRecipes(dir)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{first, second}, recipes); diff != "" {
		t.Fatalf("unexpected recipes (-want +got):\n%s", diff)
	}
}

func TestFindRecipesEmptyTree(t *testing.T) {
	recipes, err := NewWorkspaceAdapter().FindRecipes(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, recipes)
}
