package adapters

import (
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

type OutputReaderAdapter struct{}

func NewOutputReaderAdapter() OutputReaderAdapter {
	return OutputReaderAdapter{}
}

func (a OutputReaderAdapter) ReadLock(path string) ([]types.LockEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("render.lock not found").
			WithCause(err)
	}
	var entries []types.LockEntry
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid render.lock format")
		}
		parts := strings.SplitN(fields[1], "=", 2)
		if len(parts) != 2 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid render.lock format")
		}
		entries = append(entries, types.LockEntry{
			Section: types.RequirementSection(fields[0]),
			Package: strings.TrimSpace(parts[0]),
			Version: strings.TrimSpace(parts[1]),
		})
	}
	return entries, nil
}

func (a OutputReaderAdapter) ReadUploadIntent(path string) (types.UploadIntent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.UploadIntent{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("upload.intent not found").
			WithCause(err)
	}
	intent := types.UploadIntent{}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return types.UploadIntent{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid upload.intent format")
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "channel":
			intent.Channel = value
		case "label":
			intent.Label = value
		case "subdir":
			intent.Subdir = value
		case "build_id":
			intent.BuildID = value
		case "artifact":
			intent.Artifact = value
		case "created_at":
			intent.CreatedAt = value
		case "sha256":
			intent.SHA256 = value
		}
	}
	if strings.TrimSpace(intent.BuildID) == "" {
		return types.UploadIntent{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("upload.intent missing build_id")
	}
	return intent, nil
}

func (a OutputReaderAdapter) ReadPinReport(path string) (types.PinReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.PinReport{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("pin.report not found").
			WithCause(err)
	}
	var records []types.PinRecord
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 5 {
			return types.PinReport{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid pin.report format")
		}
		record := types.PinRecord{
			Dependency: strings.TrimSpace(parts[0]),
			Action:     strings.TrimSpace(parts[1]),
			Value:      strings.TrimSpace(parts[2]),
			Reason:     strings.TrimSpace(parts[3]),
			Owner:      strings.TrimSpace(parts[4]),
		}
		if len(parts) > 5 {
			record.ExpiresAt = strings.TrimSpace(parts[5])
		}
		records = append(records, record)
	}
	return types.PinReport{Records: records}, nil
}

func (a OutputReaderAdapter) ReadBuildManifest(path string) (types.BuildManifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("build.manifest not found").
			WithCause(err)
	}
	var manifest types.BuildManifest
	if err := yaml.Unmarshal(content, &manifest); err != nil {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid build.manifest format").
			WithCause(err)
	}
	if strings.TrimSpace(manifest.Artifact) == "" {
		return types.BuildManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build.manifest missing artifact")
	}
	return manifest, nil
}

var _ ports.OutputReaderPort = OutputReaderAdapter{}
