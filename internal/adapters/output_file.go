package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

type OutputFileAdapter struct {
	Dir string
}

func NewOutputFileAdapter(dir string) OutputFileAdapter {
	return OutputFileAdapter{Dir: dir}
}

func (a OutputFileAdapter) WriteLock(entries []types.LockEntry) error {
	path, err := a.ensurePath("render.lock")
	if err != nil {
		return err
	}
	ordered := append([]types.LockEntry(nil), entries...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Section != ordered[j].Section {
			return ordered[i].Section < ordered[j].Section
		}
		return ordered[i].Package < ordered[j].Package
	})
	var lines []string
	for _, entry := range ordered {
		lines = append(lines, fmt.Sprintf("%s %s=%s", entry.Section, entry.Package, entry.Version))
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

func (a OutputFileAdapter) WriteRenderedRecipe(data []byte) error {
	path, err := a.ensurePath("recipe.rendered.yaml")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (a OutputFileAdapter) WriteUploadIntent(intent types.UploadIntent) error {
	path, err := a.ensurePath("upload.intent")
	if err != nil {
		return err
	}
	content := fmt.Sprintf(
		"channel=%s\nlabel=%s\nsubdir=%s\nbuild_id=%s\nartifact=%s\ncreated_at=%s\nsha256=%s\n",
		intent.Channel,
		intent.Label,
		intent.Subdir,
		intent.BuildID,
		intent.Artifact,
		intent.CreatedAt,
		intent.SHA256,
	)
	return os.WriteFile(path, []byte(content), 0644)
}

func (a OutputFileAdapter) WritePinReport(report types.PinReport) error {
	path, err := a.ensurePath("pin.report")
	if err != nil {
		return err
	}
	ordered := append([]types.PinRecord(nil), report.Records...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Dependency != ordered[j].Dependency {
			return ordered[i].Dependency < ordered[j].Dependency
		}
		if ordered[i].Action != ordered[j].Action {
			return ordered[i].Action < ordered[j].Action
		}
		return ordered[i].Value < ordered[j].Value
	})
	var lines []string
	for _, record := range ordered {
		lines = append(lines, fmt.Sprintf(
			"%s,%s,%s,%s,%s,%s",
			record.Dependency,
			record.Action,
			record.Value,
			record.Reason,
			record.Owner,
			record.ExpiresAt,
		))
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

func (a OutputFileAdapter) WriteResolvedRequirements(resolved []types.ResolvedRequirement) error {
	path, err := a.ensurePath("requirements.resolved")
	if err != nil {
		return err
	}
	ordered := append([]types.ResolvedRequirement(nil), resolved...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Type != ordered[j].Type {
			return ordered[i].Type < ordered[j].Type
		}
		if ordered[i].Section != ordered[j].Section {
			return ordered[i].Section < ordered[j].Section
		}
		return ordered[i].Package < ordered[j].Package
	})
	var lines []string
	for _, entry := range ordered {
		lines = append(lines, fmt.Sprintf("%s,%s,%s==%s", entry.Type, entry.Section, entry.Package, entry.Version))
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

func (a OutputFileAdapter) WriteBuildManifest(manifest types.BuildManifest) error {
	path, err := a.ensurePath("build.manifest")
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal build manifest").
			WithCause(err)
	}
	return os.WriteFile(path, data, 0644)
}

func (a OutputFileAdapter) ensurePath(filename string) (string, error) {
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return filepath.Join(a.Dir, filename), nil
}

var _ ports.OutputPort = OutputFileAdapter{}
