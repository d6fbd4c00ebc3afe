package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/core"
	"feedstock/internal/types"
)

func (s Service) Test(ctx context.Context, req TestRequest) (TestResult, error) {
	recipePath := strings.TrimSpace(req.RecipePath)
	if recipePath == "" {
		return TestResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe path is required")
	}
	recipe, err := s.Recipes.LoadRecipe(recipePath)
	if err != nil {
		return TestResult{}, err
	}
	variants, err := s.Variants.LoadVariants(recipePath, recipe, req.Variants)
	if err != nil {
		return TestResult{}, err
	}
	composer := core.NewVariantComposer()
	composed, err := composer.Compose(ctx, recipe, variants)
	if err != nil {
		return TestResult{}, err
	}

	artifactPath, err := s.resolveArtifactPath(req)
	if err != nil {
		return TestResult{}, err
	}

	var report types.TestReport
	index, err := s.ArtifactReader.ReadIndex(artifactPath)
	if err != nil {
		return TestResult{}, err
	}
	report.Checks = append(report.Checks, checkEqual("identity", "name", composed.Package.Name, index.Name))
	report.Checks = append(report.Checks, checkEqual("identity", "version", composed.Package.Version, index.Version))

	if len(composed.Test.Imports) > 0 {
		imports, err := s.ArtifactReader.ReadImports(artifactPath)
		if err != nil {
			return TestResult{}, err
		}
		available := map[string]struct{}{}
		for _, name := range imports {
			available[name] = struct{}{}
		}
		for _, name := range composed.Test.Imports {
			check := types.TestCheck{Kind: "import", Target: name, Passed: true}
			if _, ok := available[name]; !ok {
				check.Passed = false
				check.Detail = "module not present in artifact"
			}
			report.Checks = append(report.Checks, check)
		}
	}

	if composed.Test.VersionAttr != "" {
		attr, err := s.ArtifactReader.ReadVersionAttr(artifactPath)
		if err != nil {
			return TestResult{}, err
		}
		check := types.TestCheck{Kind: "version_attr", Target: composed.Test.VersionAttr, Passed: true}
		if attr != composed.Package.Version {
			check.Passed = false
			check.Detail = fmt.Sprintf("artifact reports %s, recipe declares %s", attr, composed.Package.Version)
		}
		report.Checks = append(report.Checks, check)
	}

	if req.RunCommands && len(composed.Test.Commands) > 0 {
		dir := strings.TrimSpace(req.SourceDir)
		if dir == "" {
			dir = filepath.Dir(recipePath)
		}
		env := []string{"FEEDSTOCK_ARTIFACT=" + artifactPath}
		check := types.TestCheck{Kind: "commands", Target: strings.Join(composed.Test.Commands, "; "), Passed: true}
		if err := s.TestRunner.RunCommands(ctx, dir, composed.Test.Commands, env); err != nil {
			check.Passed = false
			check.Detail = err.Error()
		}
		report.Checks = append(report.Checks, check)
	}

	passed, failed := 0, 0
	var failures []string
	for _, check := range report.Checks {
		if check.Passed {
			passed++
			continue
		}
		failed++
		failures = append(failures, fmt.Sprintf("%s %s: %s", check.Kind, check.Target, check.Detail))
	}
	result := TestResult{
		PackageName: composed.Package.Name,
		Passed:      passed,
		Failed:      failed,
		Report:      report,
	}
	if failed > 0 {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("artifact tests failed: " + strings.Join(failures, "; "))
	}
	return result, nil
}

func checkEqual(kind string, target string, want string, got string) types.TestCheck {
	check := types.TestCheck{Kind: kind, Target: target, Passed: true}
	if want != got {
		check.Passed = false
		check.Detail = fmt.Sprintf("artifact reports %s, recipe declares %s", got, want)
	}
	return check
}

func (s Service) resolveArtifactPath(req TestRequest) (string, error) {
	artifactPath := strings.TrimSpace(req.ArtifactPath)
	if artifactPath != "" {
		return artifactPath, nil
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact path or output directory is required")
	}
	manifest, err := s.OutputReader.ReadBuildManifest(filepath.Join(outputDir, "build.manifest"))
	if err != nil {
		return "", err
	}
	return manifest.Artifact, nil
}
