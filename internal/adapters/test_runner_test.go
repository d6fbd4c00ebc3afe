package adapters

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"feedstock/internal/shared"
)

func TestRunCommands(t *testing.T) {
	dir := t.TempDir()
	err := NewTestRunnerAdapter().RunCommands(t.Context(), dir, []string{
		"echo marker > ran.txt",
		"test -f ran.txt",
	}, []string{"FEEDSTOCK_TEST_ENV=1"})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "ran.txt"))
	require.NoError(t, statErr)
}

func TestRunCommandsPassesEnvironment(t *testing.T) {
	dir := t.TempDir()
	err := NewTestRunnerAdapter().RunCommands(t.Context(), dir, []string{
		`test "$FEEDSTOCK_TEST_ENV" = "1"`,
	}, []string{"FEEDSTOCK_TEST_ENV=1"})
	require.NoError(t, err)
}

func TestRunCommandsFailureCapturesOutput(t *testing.T) {
	err := NewTestRunnerAdapter().RunCommands(t.Context(), t.TempDir(), []string{
		"echo boom; exit 3",
	}, nil)
	require.Error(t, err)

	var cmdErr *shared.CommandError
	require.True(t, errors.As(err, &cmdErr))
	require.Contains(t, cmdErr.Output, "boom")
	require.Equal(t, "echo boom; exit 3", cmdErr.Command)
}

func TestRunCommandsStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	err := NewTestRunnerAdapter().RunCommands(t.Context(), dir, []string{
		"false",
		"echo marker > ran.txt",
	}, nil)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "ran.txt"))
	require.True(t, os.IsNotExist(statErr))
}
