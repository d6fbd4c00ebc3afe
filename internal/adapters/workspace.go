package adapters

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
)

// WorkspaceAdapter discovers recipe files by walking a workspace tree.
type WorkspaceAdapter struct{}

func NewWorkspaceAdapter() WorkspaceAdapter {
	return WorkspaceAdapter{}
}

// FindRecipes returns the recipe files under root, sorted by path.
// Hidden directories and common build litter are skipped.
func (a WorkspaceAdapter) FindRecipes(root string) ([]string, error) {
	var recipes []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name[0] == '.' || shouldSkipSourceDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		switch d.Name() {
		case "recipe.yaml", "recipe.yml", "meta.yaml":
			recipes = append(recipes, path)
		}
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan workspace").
			WithCause(err)
	}
	sort.Strings(recipes)
	return recipes, nil
}

var _ ports.WorkspacePort = WorkspaceAdapter{}
