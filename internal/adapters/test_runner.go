package adapters

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"

	"feedstock/internal/ports"
	"feedstock/internal/shared"
)

// TestRunnerAdapter runs recipe test commands through the shell, in the
// given working directory, with the given extra environment.
type TestRunnerAdapter struct{}

func NewTestRunnerAdapter() TestRunnerAdapter {
	return TestRunnerAdapter{}
}

func (a TestRunnerAdapter) RunCommands(ctx context.Context, dir string, commands []string, env []string) error {
	for _, command := range commands {
		log.Ctx(ctx).Debug().
			Str("dir", dir).
			Str("command", command).
			Msg("Running test command")

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), env...)
		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output
		if err := cmd.Run(); err != nil {
			return &shared.CommandError{
				Command: command,
				Output:  output.String(),
				Cause:   err,
			}
		}
	}
	return nil
}

var _ ports.TestRunnerPort = TestRunnerAdapter{}
