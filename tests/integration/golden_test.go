package integration

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedstock/internal/adapters"
	"feedstock/internal/core"
	"feedstock/internal/policies"
	"feedstock/internal/types"
	"feedstock/tests/testutil"
)

// renderFixture runs the full render pipeline over the sample fixtures:
// load, compose with the py310 variant, validate, collect requirements
// (including the CI requirements file), and resolve against the fixture
// channel index.
func renderFixture(t *testing.T) (types.Recipe, core.ResolveOutcome) {
	t.Helper()
	root := testutil.RepoRoot(t)

	recipes := adapters.NewRecipeFileAdapter()
	recipePath := filepath.Join(root, "fixtures/recipe-sample.yaml")
	variantPath := filepath.Join(root, "fixtures/variants/py310.yaml")
	indexPath := filepath.Join(root, "fixtures/channel-index.yaml")

	recipe, err := recipes.LoadRecipe(recipePath)
	require.NoError(t, err)
	variants, err := adapters.NewVariantSourceAdapter(recipes).LoadVariants(recipePath, recipe, []string{variantPath})
	require.NoError(t, err)

	composer := core.NewVariantComposer()
	composed, err := composer.Compose(t.Context(), recipe, variants)
	require.NoError(t, err)
	require.NoError(t, core.NewRecipeCompiler().ValidateRecipe(t.Context(), composed))

	builder := core.NewRequirementBuilder(adapters.NewRequirementsFileAdapter())
	deps, err := builder.Build(t.Context(), composed, variants, filepath.Join(root, "fixtures/ci-requirements.txt"))
	require.NoError(t, err)

	policy, err := policies.NewPinPolicy(composed.Channel.Pins, composed.Pins)
	require.NoError(t, err)
	resolver := core.NewResolverCore(adapters.NewChannelIndexFileAdapter(indexPath), policy)
	result, err := resolver.Resolve(t.Context(), deps, composed.Directives)
	require.NoError(t, err)

	return composed, result
}

// TestGoldenRender performs a full render using the sample fixtures and
// compares the outputs against committed golden files. If a golden file
// does not exist yet (first run), it is written so it can be committed.
//
// To update golden files after an intentional change, delete the
// testdata/golden/ directory and re-run the test.
func TestGoldenRender(t *testing.T) {
	root := testutil.RepoRoot(t)
	goldenDir := filepath.Join(root, "tests", "integration", "testdata", "golden")

	_, result := renderFixture(t)

	outDir := t.TempDir()
	output := adapters.NewOutputFileAdapter(outDir)
	require.NoError(t, output.WriteLock(result.Locks))
	require.NoError(t, output.WritePinReport(result.Report))
	require.NoError(t, output.WriteResolvedRequirements(result.Resolved))

	goldenFiles := map[string]string{
		"render.lock":           filepath.Join(outDir, "render.lock"),
		"pin.report":            filepath.Join(outDir, "pin.report"),
		"requirements.resolved": filepath.Join(outDir, "requirements.resolved"),
	}

	for name, actualPath := range goldenFiles {
		t.Run(name, func(t *testing.T) {
			actual, err := os.ReadFile(actualPath)
			require.NoError(t, err)

			goldenPath := filepath.Join(goldenDir, name)
			if _, statErr := os.Stat(goldenPath); os.IsNotExist(statErr) {
				// Golden file doesn't exist yet -- write it.
				require.NoError(t, os.MkdirAll(goldenDir, 0o755))
				require.NoError(t, os.WriteFile(goldenPath, actual, 0o644))
				t.Logf("golden file written: %s (commit it)", goldenPath)
				return
			}

			expected, err := os.ReadFile(goldenPath)
			require.NoError(t, err)
			assert.Equal(t, string(expected), string(actual),
				"golden mismatch for %s -- delete testdata/golden/ and re-run to regenerate", name)
		})
	}
}

// TestGoldenRenderStructure verifies the structural properties of the
// render output independent of exact values -- ordering, names present,
// pin effects.
func TestGoldenRenderStructure(t *testing.T) {
	composed, result := renderFixture(t)

	t.Run("locks are sorted", func(t *testing.T) {
		keys := make([]string, 0, len(result.Locks))
		for _, entry := range result.Locks {
			keys = append(keys, string(entry.Section)+" "+entry.Package)
		}
		sorted := make([]string, len(keys))
		copy(sorted, keys)
		sort.Strings(sorted)
		assert.Equal(t, sorted, keys, "locks must be sorted by section then package")
	})

	t.Run("expected packages resolved", func(t *testing.T) {
		resolved := map[string]string{}
		for _, entry := range result.Locks {
			resolved[string(entry.Section)+":"+entry.Package] = entry.Version
		}
		assert.Contains(t, resolved, "host:python")
		assert.Contains(t, resolved, "host:setuptools")
		assert.Contains(t, resolved, "run:numpy")
		assert.Contains(t, resolved, "run:matplotlib")
		assert.Contains(t, resolved, "run:six")
		assert.Contains(t, resolved, "test:pytest")
		assert.Contains(t, resolved, "test:coverage")
	})

	t.Run("variant pin constrains python", func(t *testing.T) {
		for _, entry := range result.Locks {
			if entry.Package == "python" {
				// 3.11.2 is in the index but the py310 variant pins <3.11.
				assert.Equal(t, "3.10.8", entry.Version)
			}
		}
	})

	t.Run("channel pin constrains numpy", func(t *testing.T) {
		for _, entry := range result.Locks {
			if entry.Package == "numpy" {
				// 1.22.4 is in the index but the channel pins <1.22.
				assert.Equal(t, "1.21.6", entry.Version)
			}
		}
	})

	t.Run("test section floats free of pins", func(t *testing.T) {
		for _, entry := range result.Locks {
			if entry.Section == types.RequirementSectionTest && entry.Package == "pytest" {
				assert.Equal(t, "7.4.0", entry.Version)
			}
		}
	})

	t.Run("resolved deps contain both types", func(t *testing.T) {
		condaFound := false
		pipFound := false
		for _, dep := range result.Resolved {
			if dep.Type == types.DependencyTypeConda {
				condaFound = true
			}
			if dep.Type == types.DependencyTypePip {
				pipFound = true
			}
		}
		assert.True(t, condaFound, "should have at least one conda resolved dep")
		assert.True(t, pipFound, "should have at least one pip resolved dep")
	})

	t.Run("composed recipe carries variant pins", func(t *testing.T) {
		assert.Equal(t, ">=3.10,<3.11", composed.Pins["python"])
	})
}
