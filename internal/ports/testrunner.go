package ports

import "context"

// TestRunnerPort executes the recipe's test commands (e.g. invoking the
// test-discovery runner against the test source files).  Output of a
// failing command is surfaced verbatim in the returned error.
type TestRunnerPort interface {
	RunCommands(ctx context.Context, dir string, commands []string, env []string) error
}
