package adapters

import (
	"bufio"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
)

type RequirementsFileAdapter struct{}

func NewRequirementsFileAdapter() RequirementsFileAdapter {
	return RequirementsFileAdapter{}
}

// ParseRequirements reads a pip-style requirements file: one requirement
// per line, comments and blank lines stripped, inline comments cut at
// " #". Include directives (-r, -c) and editable installs are rejected;
// a requirements file used as a test input must be self-contained.
func (a RequirementsFileAdapter) ParseRequirements(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("requirements file not found").
			WithCause(err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if strings.HasPrefix(line, "-") {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("requirements file options are not supported: " + line)
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read requirements file").
			WithCause(err)
	}
	return entries, nil
}

var _ ports.RequirementsFilePort = RequirementsFileAdapter{}
