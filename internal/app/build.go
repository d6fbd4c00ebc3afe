package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"feedstock/internal/adapters"
	"feedstock/internal/ports"
	"feedstock/internal/types"
)

func (s Service) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	outcome, err := s.renderRecipe(ctx, RenderRequest{
		RecipePath:       req.RecipePath,
		Variants:         req.Variants,
		ChannelIndex:     req.ChannelIndex,
		OutputDir:        req.OutputDir,
		RequirementsFile: req.RequirementsFile,
		BuildID:          req.BuildID,
		UseSolver:        req.UseSolver,
	})
	if err != nil {
		return BuildResult{}, err
	}
	recipe := outcome.Recipe

	sourceDir, err := resolveSourceDir(req, recipe)
	if err != nil {
		return BuildResult{}, err
	}

	stages := recipe.Build.Script
	if len(stages) == 0 {
		stages = []string{"sdist", "install"}
	}

	var sdistPath string
	var manifest types.BuildManifest
	for _, stage := range stages {
		switch stage {
		case "sdist":
			sdistPath = filepath.Join(outcome.OutputDir, "sdist",
				fmt.Sprintf("%s-%s.tar.gz", recipe.Package.Name, recipe.Package.Version))
			sum, err := s.Artifacts.BuildSdist(ctx, sourceDir, sdistPath)
			if err != nil {
				return BuildResult{}, err
			}
			log.Ctx(ctx).Debug().
				Str("sdist", sdistPath).
				Str("sha256", sum).
				Msg("Built sdist")
		case "install":
			if sdistPath == "" {
				return BuildResult{}, errbuilder.New().
					WithCode(errbuilder.CodeFailedPrecondition).
					WithMsg("install stage requires a prior sdist stage")
			}
			manifest, err = s.Artifacts.BuildArtifact(ctx, ports.ArtifactBuildRequest{
				SourceDir:   sourceDir,
				SdistPath:   sdistPath,
				OutputDir:   outcome.OutputDir,
				Name:        recipe.Package.Name,
				Version:     recipe.Package.Version,
				BuildNumber: recipe.Build.Number,
				Subdir:      recipe.Channel.Subdir,
				Metadata:    outcome.Rendered,
				Locks:       outcome.Outcome.Locks,
			})
			if err != nil {
				return BuildResult{}, err
			}
		default:
			return BuildResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("unknown build stage: " + stage)
		}
	}
	if manifest.Artifact == "" {
		return BuildResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("build script produced no artifact")
	}

	manifest.CreatedAt = timeNow(s.Clock).Format(time.RFC3339)
	output := adapters.NewOutputFileAdapter(outcome.OutputDir)
	if err := output.WriteBuildManifest(manifest); err != nil {
		return BuildResult{}, err
	}

	// The upload intent gains the artifact location once it exists.
	intent := buildUploadIntent(recipe.Channel, outcome.BuildID, s.Clock)
	intent.Artifact = manifest.Artifact
	intent.SHA256 = manifest.SHA256
	if err := output.WriteUploadIntent(intent); err != nil {
		return BuildResult{}, err
	}

	return BuildResult{
		PackageName:  recipe.Package.Name,
		Version:      recipe.Package.Version,
		BuildID:      outcome.BuildID,
		ArtifactPath: manifest.Artifact,
		SHA256:       manifest.SHA256,
	}, nil
}

func resolveSourceDir(req BuildRequest, recipe types.Recipe) (string, error) {
	sourceDir := strings.TrimSpace(req.SourceDir)
	if sourceDir != "" {
		return sourceDir, nil
	}
	if recipe.Source.Path != "" {
		path := recipe.Source.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(req.RecipePath), path)
		}
		return path, nil
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("source directory is required for url sources")
}
