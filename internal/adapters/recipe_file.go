package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"feedstock/internal/types"
)

type RecipeFileAdapter struct {
	Versions VersionFileAdapter
}

func NewRecipeFileAdapter() RecipeFileAdapter {
	return RecipeFileAdapter{Versions: NewVersionFileAdapter()}
}

func (a RecipeFileAdapter) LoadRecipe(path string) (types.Recipe, error) {
	recipe, err := a.load(path)
	if err != nil {
		return types.Recipe{}, err
	}
	if recipe.Kind != types.RecipeKindRecipe {
		return types.Recipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("document kind is not recipe")
	}
	if err := a.fillVersion(path, &recipe); err != nil {
		return types.Recipe{}, err
	}
	return recipe, nil
}

func (a RecipeFileAdapter) LoadVariant(path string) (types.Recipe, error) {
	recipe, err := a.load(path)
	if err != nil {
		return types.Recipe{}, err
	}
	if recipe.Kind != types.RecipeKindVariant {
		return types.Recipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("document kind is not variant")
	}
	return recipe, nil
}

func (a RecipeFileAdapter) load(path string) (types.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Recipe{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("recipe file not found").
			WithCause(err)
	}
	var recipe types.Recipe
	if err := yaml.Unmarshal(data, &recipe); err != nil {
		return types.Recipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse recipe yaml").
			WithCause(err)
	}
	return recipe, nil
}

// fillVersion resolves package.version_file against the recipe location
// and reads the version from it. An inline version and a version file
// together are rejected so there is a single source of truth.
func (a RecipeFileAdapter) fillVersion(path string, recipe *types.Recipe) error {
	versionFile := strings.TrimSpace(recipe.Package.VersionFile)
	if versionFile == "" {
		return nil
	}
	if strings.TrimSpace(recipe.Package.Version) != "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package.version and package.version_file are mutually exclusive")
	}
	if !filepath.IsAbs(versionFile) {
		versionFile = filepath.Join(filepath.Dir(path), versionFile)
	}
	version, err := a.Versions.ReadVersion(versionFile)
	if err != nil {
		return err
	}
	recipe.Package.Version = version
	return nil
}
