package adapters

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

// ArtifactReaderAdapter opens built artifacts and extracts the embedded
// info documents.
type ArtifactReaderAdapter struct{}

func NewArtifactReaderAdapter() ArtifactReaderAdapter {
	return ArtifactReaderAdapter{}
}

func (a ArtifactReaderAdapter) ReadIndex(path string) (types.BuildManifest, error) {
	data, err := a.readEntry(path, "info/index.yaml")
	if err != nil {
		return types.BuildManifest{}, err
	}
	var doc struct {
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		BuildNumber int    `yaml:"build_number"`
		Subdir      string `yaml:"subdir"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid artifact index document").
			WithCause(err)
	}
	return types.BuildManifest{
		Name:        doc.Name,
		Version:     doc.Version,
		BuildNumber: doc.BuildNumber,
		Subdir:      doc.Subdir,
		Artifact:    path,
	}, nil
}

func (a ArtifactReaderAdapter) ReadImports(path string) ([]string, error) {
	data, err := a.readEntry(path, "info/imports")
	if err != nil {
		return nil, err
	}
	var imports []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		imports = append(imports, line)
	}
	return imports, nil
}

func (a ArtifactReaderAdapter) ReadVersionAttr(path string) (string, error) {
	data, err := a.readEntry(path, "info/version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (a ArtifactReaderAdapter) readEntry(path string, name string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("artifact not found").
			WithCause(err)
	}
	defer file.Close()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact is not zstd compressed").
			WithCause(err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read artifact archive").
				WithCause(err)
		}
		if header.Name != name {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read artifact entry").
				WithCause(err)
		}
		return data, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("artifact entry not found: " + name)
}

var _ ports.ArtifactReaderPort = ArtifactReaderAdapter{}
