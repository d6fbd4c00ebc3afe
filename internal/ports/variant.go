package ports

import "feedstock/internal/types"

// VariantSourcePort loads the variant documents that compose under a
// recipe.  Explicit paths take precedence over the recipe's defaults;
// default paths are resolved relative to the recipe file.
type VariantSourcePort interface {
	LoadVariants(recipePath string, recipe types.Recipe, explicit []string) ([]types.Recipe, error)
}
