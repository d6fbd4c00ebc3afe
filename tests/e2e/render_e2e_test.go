package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"feedstock/tests/testutil"
)

func TestRenderCommandE2E(t *testing.T) {
	root := testutil.RepoRoot(t)
	outDir := t.TempDir()

	cmd := exec.Command("go", "run", "./cmd/feedstock", "render",
		"--recipe", "fixtures/recipe-sample.yaml",
		"--variant", "fixtures/variants/py310.yaml",
		"--channel-index", "fixtures/channel-index.yaml",
		"--output", outDir,
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	require.FileExists(t, filepath.Join(outDir, "render.lock"))
	require.FileExists(t, filepath.Join(outDir, "recipe.rendered.yaml"))
	require.FileExists(t, filepath.Join(outDir, "upload.intent"))
	require.FileExists(t, filepath.Join(outDir, "pin.report"))
	require.FileExists(t, filepath.Join(outDir, "requirements.resolved"))
}

func TestValidateCommandE2E(t *testing.T) {
	root := testutil.RepoRoot(t)

	cmd := exec.Command("go", "run", "./cmd/feedstock", "validate",
		"--recipe", "fixtures/recipe-sample.yaml",
		"--variant", "fixtures/variants/py310.yaml",
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}
