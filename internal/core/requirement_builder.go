package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

// RequirementBuilder collects typed dependencies from a recipe, its
// variants, and an optional pip-style requirements file.
type RequirementBuilder struct {
	Requirements ports.RequirementsFilePort
}

func NewRequirementBuilder(requirements ports.RequirementsFilePort) RequirementBuilder {
	return RequirementBuilder{Requirements: requirements}
}

func (b RequirementBuilder) Build(ctx context.Context, recipe types.Recipe, variants []types.Recipe, requirementsFile string) ([]types.Dependency, error) {
	var deps []types.Dependency

	recipeDeps, err := parseRecipeSections(recipe, "recipe")
	if err != nil {
		return nil, err
	}
	deps = append(deps, recipeDeps...)

	for _, variant := range variants {
		variantDeps, err := parseRecipeSections(variant, "variant")
		if err != nil {
			return nil, err
		}
		deps = append(deps, variantDeps...)
	}

	testRequires, err := parseEntries(recipe.Test.Requires, types.DependencyTypePip, types.RequirementSectionTest, "recipe:test_requires")
	if err != nil {
		return nil, err
	}
	deps = append(deps, testRequires...)

	path := strings.TrimSpace(requirementsFile)
	if path == "" {
		path = strings.TrimSpace(recipe.Test.RequirementsFile)
	}
	if path != "" && b.Requirements != nil {
		entries, err := b.Requirements.ParseRequirements(path)
		if err != nil {
			return nil, err
		}
		fileDeps, err := parseEntries(entries, types.DependencyTypePip, types.RequirementSectionTest, "requirements_file:"+path)
		if err != nil {
			return nil, err
		}
		deps = append(deps, fileDeps...)
	}

	log.Ctx(ctx).Debug().Int("deps", len(deps)).Msg("requirements collected")
	return deps, nil
}

func parseRecipeSections(recipe types.Recipe, origin string) ([]types.Dependency, error) {
	var deps []types.Dependency
	// Host and run sections install from the channel; the test section
	// installs with pip, like test.requires and the requirements file.
	sections := []struct {
		entries []string
		section types.RequirementSection
		depType types.DependencyType
	}{
		{recipe.Requirements.Host, types.RequirementSectionHost, types.DependencyTypeConda},
		{recipe.Requirements.Run, types.RequirementSectionRun, types.DependencyTypeConda},
		{recipe.Requirements.Test, types.RequirementSectionTest, types.DependencyTypePip},
	}
	for _, s := range sections {
		parsed, err := parseEntries(s.entries, s.depType, s.section, origin+":"+string(s.section))
		if err != nil {
			return nil, err
		}
		deps = append(deps, parsed...)
	}
	return deps, nil
}

func parseEntries(entries []string, depType types.DependencyType, section types.RequirementSection, source string) ([]types.Dependency, error) {
	var deps []types.Dependency
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		dep, err := ParseRequirement(entry, depType, section, source)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
