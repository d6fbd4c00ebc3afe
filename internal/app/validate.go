package app

import (
	"context"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"feedstock/internal/core"
	"feedstock/internal/types"
)

// Validate checks a recipe file, or every recipe file found under a
// directory, against the schema and composition rules.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	recipePath := strings.TrimSpace(req.RecipePath)
	if recipePath == "" {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe path is required")
	}
	if info, err := os.Stat(recipePath); err == nil && info.IsDir() {
		return s.validateWorkspace(ctx, recipePath)
	}
	composed, err := s.validateOne(ctx, recipePath, req.Variants)
	if err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{
		PackageName: composed.Package.Name,
		Version:     composed.Package.Version,
		RecipeCount: 1,
	}, nil
}

func (s Service) validateWorkspace(ctx context.Context, root string) (ValidateResult, error) {
	recipePaths, err := s.Workspace.FindRecipes(root)
	if err != nil {
		return ValidateResult{}, err
	}
	if len(recipePaths) == 0 {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no recipe files found in " + root)
	}
	for _, recipePath := range recipePaths {
		if _, err := s.validateOne(ctx, recipePath, nil); err != nil {
			return ValidateResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("validation failed for " + recipePath).
				WithCause(err)
		}
		log.Ctx(ctx).Debug().Str("recipe", recipePath).Msg("recipe validated")
	}
	return ValidateResult{RecipeCount: len(recipePaths)}, nil
}

func (s Service) validateOne(ctx context.Context, recipePath string, variantPaths []string) (types.Recipe, error) {
	recipe, err := s.Recipes.LoadRecipe(recipePath)
	if err != nil {
		return types.Recipe{}, err
	}
	variants, err := s.Variants.LoadVariants(recipePath, recipe, variantPaths)
	if err != nil {
		return types.Recipe{}, err
	}
	composer := core.NewVariantComposer()
	compiler := core.NewRecipeCompiler()
	composed, err := composer.Compose(ctx, recipe, variants)
	if err != nil {
		return types.Recipe{}, err
	}
	if err := compiler.ValidateRecipe(ctx, composed); err != nil {
		return types.Recipe{}, err
	}
	return composed, nil
}
