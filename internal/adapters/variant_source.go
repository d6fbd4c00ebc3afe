package adapters

import (
	"path/filepath"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

type VariantSourceAdapter struct {
	Recipes RecipeFileAdapter
}

func NewVariantSourceAdapter(recipes RecipeFileAdapter) VariantSourceAdapter {
	return VariantSourceAdapter{Recipes: recipes}
}

// LoadVariants loads explicit variant paths when given; otherwise the
// recipe's defaults.variants entries, resolved relative to the recipe
// file.
func (a VariantSourceAdapter) LoadVariants(recipePath string, recipe types.Recipe, explicit []string) ([]types.Recipe, error) {
	paths := explicit
	if len(paths) == 0 {
		for _, entry := range recipe.Defaults.Variants {
			if !filepath.IsAbs(entry) {
				entry = filepath.Join(filepath.Dir(recipePath), entry)
			}
			paths = append(paths, entry)
		}
	}
	var variants []types.Recipe
	for _, path := range paths {
		variant, err := a.Recipes.LoadVariant(path)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

var _ ports.VariantSourcePort = VariantSourceAdapter{}
