package adapters

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

// ArtifactBuilderAdapter packs source trees into build artifacts. Every
// byte written is a function of the inputs: entries are sorted, header
// timestamps fixed, ownership zeroed, and compression single-threaded,
// so an unchanged tree rebuilds to a bit-identical file.
type ArtifactBuilderAdapter struct{}

func NewArtifactBuilderAdapter() ArtifactBuilderAdapter {
	return ArtifactBuilderAdapter{}
}

// buildEpoch is the fixed modification time stamped on every archive
// entry.
var buildEpoch = time.Unix(0, 0).UTC()

func (a ArtifactBuilderAdapter) BuildSdist(ctx context.Context, sourceDir string, outPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(sourceDir) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source directory is empty")
	}
	entries, err := collectSourceEntries(sourceDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create sdist directory").
			WithCause(err)
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create gzip writer").
			WithCause(err)
	}
	tw := tar.NewWriter(gz)
	for _, entry := range entries {
		if err := writeTarFile(tw, filepath.Join(sourceDir, entry), entry); err != nil {
			return "", err
		}
	}
	if err := tw.Close(); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize sdist tar").
			WithCause(err)
	}
	if err := gz.Close(); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize sdist gzip").
			WithCause(err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write sdist").
			WithCause(err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func (a ArtifactBuilderAdapter) BuildArtifact(ctx context.Context, request ports.ArtifactBuildRequest) (types.BuildManifest, error) {
	if err := ctx.Err(); err != nil {
		return types.BuildManifest{}, err
	}
	if strings.TrimSpace(request.SdistPath) == "" {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("sdist path is required")
	}
	sdist, err := os.ReadFile(request.SdistPath)
	if err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("sdist not found").
			WithCause(err)
	}

	imports, err := discoverImports(request.SourceDir)
	if err != nil {
		return types.BuildManifest{}, err
	}
	versionAttr, err := discoverVersionAttr(request.SourceDir, imports)
	if err != nil {
		return types.BuildManifest{}, err
	}
	if versionAttr != "" && versionAttr != request.Version {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("source version attribute %s does not match recipe version %s", versionAttr, request.Version))
	}
	if versionAttr == "" {
		versionAttr = request.Version
	}

	indexDoc, err := artifactIndex(request)
	if err != nil {
		return types.BuildManifest{}, err
	}

	artifactDir := filepath.Join(request.OutputDir, "artifacts", request.Subdir)
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact directory").
			WithCause(err)
	}
	artifactName := fmt.Sprintf("%s-%s-%d.tar.zst", request.Name, request.Version, request.BuildNumber)
	artifactPath := filepath.Join(artifactDir, artifactName)

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create zstd writer").
			WithCause(err)
	}
	tw := tar.NewWriter(zw)

	files := []struct {
		name string
		data []byte
	}{
		{"info/imports", []byte(strings.Join(imports, "\n") + "\n")},
		{"info/index.yaml", indexDoc},
		{"info/recipe.yaml", request.Metadata},
		{"info/version", []byte(versionAttr + "\n")},
		{fmt.Sprintf("pkg/%s-%s.tar.gz", request.Name, request.Version), sdist},
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	for _, file := range files {
		if err := writeTarBytes(tw, file.name, file.data); err != nil {
			return types.BuildManifest{}, err
		}
	}
	if err := tw.Close(); err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize artifact tar").
			WithCause(err)
	}
	if err := zw.Close(); err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize artifact compression").
			WithCause(err)
	}
	if err := os.WriteFile(artifactPath, buf.Bytes(), 0644); err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write artifact").
			WithCause(err)
	}

	artifactSum := sha256.Sum256(buf.Bytes())
	sdistSum := sha256.Sum256(sdist)
	return types.BuildManifest{
		Name:        request.Name,
		Version:     request.Version,
		BuildNumber: request.BuildNumber,
		Subdir:      request.Subdir,
		Artifact:    artifactPath,
		SHA256:      hex.EncodeToString(artifactSum[:]),
		SdistSHA256: hex.EncodeToString(sdistSum[:]),
	}, nil
}

// artifactIndex renders the info/index.yaml document embedded in the
// artifact: identity plus the locked run dependencies.
func artifactIndex(request ports.ArtifactBuildRequest) ([]byte, error) {
	var depends []string
	for _, lock := range request.Locks {
		if lock.Section != types.RequirementSectionRun {
			continue
		}
		depends = append(depends, fmt.Sprintf("%s ==%s", lock.Package, lock.Version))
	}
	sort.Strings(depends)
	doc := struct {
		Name        string   `yaml:"name"`
		Version     string   `yaml:"version"`
		BuildNumber int      `yaml:"build_number"`
		Subdir      string   `yaml:"subdir"`
		Depends     []string `yaml:"depends,omitempty"`
	}{
		Name:        request.Name,
		Version:     request.Version,
		BuildNumber: request.BuildNumber,
		Subdir:      request.Subdir,
		Depends:     depends,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal artifact index").
			WithCause(err)
	}
	return data, nil
}

// collectSourceEntries walks the source tree and returns sorted relative
// file paths, skipping VCS and build litter.
func collectSourceEntries(root string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if shouldSkipSourceDir(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan source tree").
			WithCause(err)
	}
	sort.Strings(entries)
	return entries, nil
}

func shouldSkipSourceDir(name string) bool {
	switch name {
	case ".git", "__pycache__", "dist", "build", ".tox", ".pytest_cache", ".eggs":
		return true
	default:
		return strings.HasSuffix(name, ".egg-info")
	}
}

// discoverImports lists the importable top-level modules in a source
// tree: directories with an __init__.py and plain top-level .py files.
func discoverImports(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("source directory not found").
			WithCause(err)
	}
	var imports []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if shouldSkipSourceDir(name) {
				continue
			}
			if _, err := os.Stat(filepath.Join(sourceDir, name, "__init__.py")); err == nil {
				imports = append(imports, name)
			}
			continue
		}
		if !strings.HasSuffix(name, ".py") {
			continue
		}
		module := strings.TrimSuffix(name, ".py")
		switch module {
		case "setup", "conftest":
			continue
		}
		imports = append(imports, module)
	}
	sort.Strings(imports)
	return imports, nil
}

// discoverVersionAttr scans the discovered modules for a __version__
// assignment. Returns empty when no module declares one.
func discoverVersionAttr(sourceDir string, imports []string) (string, error) {
	for _, module := range imports {
		candidates := []string{
			filepath.Join(sourceDir, module, "__init__.py"),
			filepath.Join(sourceDir, module+".py"),
		}
		for _, candidate := range candidates {
			version, found, err := scanVersionAssignment(candidate)
			if err != nil {
				return "", err
			}
			if found {
				return version, nil
			}
		}
	}
	return "", nil
}

func scanVersionAssignment(path string) (string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open module file").
			WithCause(err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if match := versionAssignPattern.FindStringSubmatch(line); match != nil {
			return strings.TrimSpace(match[1]), true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan module file").
			WithCause(err)
	}
	return "", false, nil
}

func writeTarFile(tw *tar.Writer, path string, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat source file").
			WithCause(err)
	}
	mode := int64(0644)
	if info.Mode()&0111 != 0 {
		mode = 0755
	}
	header := &tar.Header{
		Name:    name,
		Mode:    mode,
		Size:    info.Size(),
		ModTime: buildEpoch,
		Format:  tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(header); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write tar header").
			WithCause(err)
	}
	file, err := os.Open(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open source file").
			WithCause(err)
	}
	defer file.Close()
	if _, err := io.Copy(tw, file); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to copy source file").
			WithCause(err)
	}
	return nil
}

func writeTarBytes(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: buildEpoch,
		Format:  tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(header); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write tar header").
			WithCause(err)
	}
	if _, err := tw.Write(data); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write tar entry").
			WithCause(err)
	}
	return nil
}

var _ ports.ArtifactBuilderPort = ArtifactBuilderAdapter{}
