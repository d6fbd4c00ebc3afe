package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"feedstock/internal/adapters"
	"feedstock/internal/core"
	"feedstock/internal/policies"
	"feedstock/internal/types"
)

// renderOutcome carries the composed recipe and resolution results
// between the render and build use cases.
type renderOutcome struct {
	Recipe    types.Recipe
	Rendered  []byte
	Outcome   core.ResolveOutcome
	BuildID   string
	OutputDir string
}

func (s Service) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	outcome, err := s.renderRecipe(ctx, req)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{
		PackageName: outcome.Recipe.Package.Name,
		Version:     outcome.Recipe.Package.Version,
		BuildID:     outcome.BuildID,
		OutputDir:   outcome.OutputDir,
		LockCount:   len(outcome.Outcome.Locks),
	}, nil
}

func (s Service) renderRecipe(ctx context.Context, req RenderRequest) (renderOutcome, error) {
	recipePath := strings.TrimSpace(req.RecipePath)
	if recipePath == "" {
		return renderOutcome{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe path is required")
	}
	recipe, err := s.Recipes.LoadRecipe(recipePath)
	if err != nil {
		return renderOutcome{}, err
	}
	variants, err := s.Variants.LoadVariants(recipePath, recipe, req.Variants)
	if err != nil {
		return renderOutcome{}, err
	}
	composer := core.NewVariantComposer()
	compiler := core.NewRecipeCompiler()
	composed, err := composer.Compose(ctx, recipe, variants)
	if err != nil {
		return renderOutcome{}, err
	}
	if err := compiler.ValidateRecipe(ctx, composed); err != nil {
		return renderOutcome{}, err
	}

	emitHints(checkRenderDefaultsHints(req, composed.Defaults))
	req = applyRecipeDefaults(req, recipePath, composed.Defaults)
	channelIndex := strings.TrimSpace(req.ChannelIndex)
	if channelIndex == "" {
		return renderOutcome{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel index file is required")
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return renderOutcome{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is required")
	}

	requirementsFile := strings.TrimSpace(req.RequirementsFile)
	if requirementsFile == "" && composed.Test.RequirementsFile != "" {
		requirementsFile = composed.Test.RequirementsFile
		if !filepath.IsAbs(requirementsFile) {
			requirementsFile = filepath.Join(filepath.Dir(recipePath), requirementsFile)
		}
	}

	builder := core.NewRequirementBuilder(s.Requirements)
	deps, err := builder.Build(ctx, composed, variants, requirementsFile)
	if err != nil {
		return renderOutcome{}, err
	}

	policy, err := policies.NewPinPolicy(composed.Channel.Pins, composed.Pins)
	if err != nil {
		return renderOutcome{}, err
	}
	resolver := core.NewResolverCore(adapters.NewChannelIndexFileAdapter(channelIndex), policy)
	resolver.UseSolver = req.UseSolver
	result, err := resolver.Resolve(ctx, deps, composed.Directives)
	if err != nil {
		return renderOutcome{}, err
	}

	rendered, err := yaml.Marshal(composed)
	if err != nil {
		return renderOutcome{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal rendered recipe").
			WithCause(err)
	}

	output := adapters.NewOutputFileAdapter(outputDir)
	if err := output.WriteLock(result.Locks); err != nil {
		return renderOutcome{}, err
	}
	if err := output.WriteRenderedRecipe(rendered); err != nil {
		return renderOutcome{}, err
	}
	buildID := strings.TrimSpace(req.BuildID)
	if buildID == "" {
		buildID = buildBuildID(composed.Package.Name, composed.Channel, result.Locks)
	}
	intent := buildUploadIntent(composed.Channel, buildID, s.Clock)
	if err := output.WriteUploadIntent(intent); err != nil {
		return renderOutcome{}, err
	}
	if err := output.WritePinReport(result.Report); err != nil {
		return renderOutcome{}, err
	}
	if err := output.WriteResolvedRequirements(result.Resolved); err != nil {
		return renderOutcome{}, err
	}
	return renderOutcome{
		Recipe:    composed,
		Rendered:  rendered,
		Outcome:   result,
		BuildID:   buildID,
		OutputDir: outputDir,
	}, nil
}

func buildUploadIntent(channel types.ChannelTarget, buildID string, clock func() time.Time) types.UploadIntent {
	now := time.Now().UTC()
	if clock != nil {
		now = clock().UTC()
	}
	return types.UploadIntent{
		Channel:   channel.Name,
		Label:     channel.Label,
		Subdir:    channel.Subdir,
		BuildID:   buildID,
		CreatedAt: now.Format(time.RFC3339),
	}
}

// buildBuildID derives a deterministic build id from the channel target
// and the sorted lock set.  An unchanged resolution yields the same id.
func buildBuildID(packageName string, channel types.ChannelTarget, locks []types.LockEntry) string {
	ordered := append([]types.LockEntry(nil), locks...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Section != ordered[j].Section {
			return ordered[i].Section < ordered[j].Section
		}
		return ordered[i].Package < ordered[j].Package
	})
	var builder strings.Builder
	builder.WriteString(channel.Name)
	builder.WriteString("\n")
	builder.WriteString(channel.Label)
	builder.WriteString("\n")
	builder.WriteString(channel.Subdir)
	builder.WriteString("\n")
	for _, entry := range ordered {
		builder.WriteString(string(entry.Section))
		builder.WriteString(" ")
		builder.WriteString(entry.Package)
		builder.WriteString("=")
		builder.WriteString(entry.Version)
		builder.WriteString("\n")
	}
	sum := sha256.Sum256([]byte(builder.String()))
	return fmt.Sprintf("%s-%s", packageName, hex.EncodeToString(sum[:])[:12])
}
