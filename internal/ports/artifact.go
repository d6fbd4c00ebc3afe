package ports

import (
	"context"

	"feedstock/internal/types"
)

type ArtifactBuildRequest struct {
	SourceDir   string
	SdistPath   string
	OutputDir   string
	Name        string
	Version     string
	BuildNumber int
	Subdir      string

	// Metadata is the rendered recipe document embedded into the
	// artifact under info/recipe.yaml.
	Metadata []byte

	Locks []types.LockEntry
}

// ArtifactBuilderPort produces the build artifacts.  Both stages are
// deterministic: rebuilding from an unchanged source tree yields a
// bit-identical file.
type ArtifactBuilderPort interface {
	BuildSdist(ctx context.Context, sourceDir string, outPath string) (string, error)
	BuildArtifact(ctx context.Context, request ArtifactBuildRequest) (types.BuildManifest, error)
}

// ArtifactReaderPort opens a built artifact for inspection.
type ArtifactReaderPort interface {
	ReadIndex(path string) (types.BuildManifest, error)
	ReadImports(path string) ([]string, error)
	ReadVersionAttr(path string) (string, error)
}
