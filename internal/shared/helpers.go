// Package shared provides common utility functions used across multiple
// packages in the feedstock codebase.
package shared

import (
	"fmt"
	"strings"
)

// NormalizePackageName lowercases a package name and replaces underscores
// and dots with hyphens, following PEP 503 normalization.  Channel and pip
// package names are compared in this normalized form.
func NormalizePackageName(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer("_", "-", ".", "-")
	return replacer.Replace(lower)
}

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, strings.TrimSpace(body))
}

// CommandError reports a failed shell command together with its combined
// output.
type CommandError struct {
	Command string
	Output  string
	Cause   error
}

func (e *CommandError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("command failed: %s: %v", e.Command, e.Cause)
	}
	return fmt.Sprintf("command failed: %s: %s", e.Command, output)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}
