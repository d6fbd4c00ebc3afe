package adapters

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
)

type VersionFileAdapter struct{}

func NewVersionFileAdapter() VersionFileAdapter {
	return VersionFileAdapter{}
}

var versionAssignPattern = regexp.MustCompile(`^__version__\s*=\s*["']([^"']+)["']`)

// ReadVersion extracts a version string from an external metadata file.
// A python-style __version__ assignment wins; otherwise the first
// non-empty line is taken as a bare version.
func (a VersionFileAdapter) ReadVersion(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("version file not found").
			WithCause(err)
	}
	defer file.Close()

	bare := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if match := versionAssignPattern.FindStringSubmatch(line); match != nil {
			return strings.TrimSpace(match[1]), nil
		}
		if bare == "" {
			bare = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read version file").
			WithCause(err)
	}
	if bare == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("version file contains no version")
	}
	return bare, nil
}

var _ ports.VersionFilePort = VersionFileAdapter{}
