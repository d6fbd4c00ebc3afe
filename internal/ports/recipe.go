package ports

import "feedstock/internal/types"

type RecipeLoaderPort interface {
	LoadRecipe(path string) (types.Recipe, error)
}

type VariantLoaderPort interface {
	LoadVariant(path string) (types.Recipe, error)
}
