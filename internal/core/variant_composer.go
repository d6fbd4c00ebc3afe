package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"feedstock/internal/types"
)

type VariantComposer struct{}

func NewVariantComposer() VariantComposer {
	return VariantComposer{}
}

// Compose merges variant documents under a recipe. Variants apply in
// order, later variants overriding earlier ones per pin key; the
// recipe's own pins and directives are applied last and win. Variant
// requirement sections are not absorbed here: the requirement builder
// collects them at variant priority, so a variant constraint yields to
// a conflicting recipe constraint instead of colliding with it.
func (c VariantComposer) Compose(ctx context.Context, recipe types.Recipe, variants []types.Recipe) (types.Recipe, error) {
	if recipe.Kind != types.RecipeKindRecipe {
		return types.Recipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("compose requires a recipe document")
	}
	if err := validateVariantSet(variants); err != nil {
		return types.Recipe{}, err
	}

	composed := recipe
	composed.Pins = map[string]string{}
	composed.Directives = nil

	for _, variant := range variants {
		if variant.Kind != types.RecipeKindVariant {
			return types.Recipe{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid variant kind: %s", variant.Package.Name))
		}
		mergeVariant(&composed, variant)
	}

	for name, spec := range recipe.Pins {
		composed.Pins[name] = spec
	}
	composed.Directives = append(composed.Directives, recipe.Directives...)

	log.Ctx(ctx).Debug().Str("recipe", recipe.Package.Name).Int("variants", len(variants)).Msg("recipe composed")
	return composed, nil
}

func mergeVariant(target *types.Recipe, variant types.Recipe) {
	for name, spec := range variant.Pins {
		target.Pins[name] = spec
	}
	target.Directives = append(target.Directives, variant.Directives...)
}

func validateVariantSet(variants []types.Recipe) error {
	seen := map[string]struct{}{}
	for _, variant := range variants {
		key := variant.Package.Name
		if _, ok := seen[key]; ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("duplicate variant: %s", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}
