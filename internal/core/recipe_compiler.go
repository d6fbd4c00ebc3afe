package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"feedstock/internal/policies"
	"feedstock/internal/types"
)

type RecipeCompiler struct{}

var validSubdirs = map[string]struct{}{
	"noarch":        {},
	"linux-64":      {},
	"linux-aarch64": {},
	"osx-64":        {},
	"osx-arm64":     {},
	"win-64":        {},
}

var validBuildStages = map[string]struct{}{
	"sdist":   {},
	"install": {},
}

var packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func NewRecipeCompiler() RecipeCompiler {
	return RecipeCompiler{}
}

func (c RecipeCompiler) ValidateRecipe(ctx context.Context, recipe types.Recipe) error {
	assert.NotEmpty(ctx, recipe.APIVersion, "api_version must be set")
	assert.NotEmpty(ctx, string(recipe.Kind), "kind must be set")
	assert.NotEmpty(ctx, recipe.Package.Name, "package.name must be set")
	if recipe.Kind != types.RecipeKindRecipe && recipe.Kind != types.RecipeKindVariant {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe kind must be recipe or variant")
	}
	if !packageNamePattern.MatchString(recipe.Package.Name) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package name: %s", recipe.Package.Name))
	}
	if recipe.Kind == types.RecipeKindVariant {
		return validateDirectives(recipe.Directives)
	}

	if strings.TrimSpace(recipe.Package.Version) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package.version must be set (inline or via version_file)")
	}
	if !IsValidVersion(recipe.Package.Version) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package.version is not a valid PEP 440 version: %s", recipe.Package.Version))
	}
	if recipe.Build.Number < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build.number must not be negative")
	}
	for _, stage := range recipe.Build.Script {
		if _, ok := validBuildStages[strings.TrimSpace(stage)]; !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unsupported build stage: %s", stage))
		}
	}
	if err := validateSource(recipe.Source); err != nil {
		return err
	}
	if err := validateAbout(recipe.About); err != nil {
		return err
	}
	if len(recipe.Extra.Maintainers) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("extra.maintainers must not be empty")
	}
	if err := validateChannelTarget(recipe.Channel); err != nil {
		return err
	}
	if err := validateTestSection(recipe.Test); err != nil {
		return err
	}
	if err := validateDirectives(recipe.Directives); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("recipe", recipe.Package.Name).Msg("recipe validated")
	return nil
}

func validateSource(source types.SourceInfo) error {
	hasPath := strings.TrimSpace(source.Path) != ""
	hasURL := strings.TrimSpace(source.URL) != ""
	if hasPath && hasURL {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source must declare either path or url, not both")
	}
	if hasURL {
		if !isHTTPURL(source.URL) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("source.url must be an http(s) URL: %s", source.URL))
		}
		if strings.TrimSpace(source.SHA256) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("source.sha256 is required for url sources")
		}
	}
	return nil
}

func validateAbout(about types.About) error {
	if strings.TrimSpace(about.License) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("about.license must be set")
	}
	for _, url := range []string{about.Home, about.DocURL, about.DevURL} {
		if strings.TrimSpace(url) == "" {
			continue
		}
		if !isHTTPURL(url) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("about URL must be http(s): %s", url))
		}
	}
	return nil
}

func validateChannelTarget(channel types.ChannelTarget) error {
	if channel.Name == "" || channel.Label == "" || channel.Subdir == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel name, label, and subdir are required for recipes")
	}
	if _, ok := validSubdirs[channel.Subdir]; !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported channel subdir: %s", channel.Subdir))
	}
	for _, pin := range channel.Pins {
		constraint, err := ParseConstraint(pin, "channel:pin")
		if err != nil {
			return err
		}
		if constraint.Op == types.ConstraintOpNone {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("channel pin missing operator: %s", pin))
		}
	}
	return nil
}

func validateTestSection(test types.TestSection) error {
	hasTest := len(test.Commands) > 0 || len(test.SourceFiles) > 0 ||
		len(test.Requires) > 0 || strings.TrimSpace(test.RequirementsFile) != ""
	if hasTest && len(test.Imports) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("test.imports must not be empty when a test section is declared")
	}
	return nil
}

func validateDirectives(directives []types.PinDirective) error {
	for _, directive := range directives {
		if err := validateDirective(directive); err != nil {
			return err
		}
	}
	return nil
}

func validateDirective(directive types.PinDirective) error {
	if strings.TrimSpace(directive.Dependency) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin directive dependency must not be empty")
	}
	if !isTypedDependency(directive.Dependency) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("pin directive dependency must be typed (conda:name or pip:name): %s", directive.Dependency))
	}
	action := strings.ToLower(strings.TrimSpace(directive.Action))
	if action == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin directive action must not be empty")
	}
	switch action {
	case policies.ActionForce, policies.ActionRelax, policies.ActionReplace, policies.ActionBlock:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("pin directive has invalid action: %s", directive.Action))
	}
	if strings.TrimSpace(directive.Reason) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin directive reason must not be empty")
	}
	if strings.TrimSpace(directive.Owner) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin directive owner must not be empty")
	}
	if (action == policies.ActionForce || action == policies.ActionReplace) && strings.TrimSpace(directive.Value) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin directive value must not be empty for force/replace actions")
	}
	return nil
}

func isTypedDependency(value string) bool {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return false
	}
	switch strings.ToLower(parts[0]) {
	case "conda", "pip":
		return strings.TrimSpace(parts[1]) != ""
	default:
		return false
	}
}

func isHTTPURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
