package adapters

import (
	"os"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"feedstock/internal/ports"
	"feedstock/internal/shared"
	"feedstock/internal/types"
)

type ChannelIndexFileAdapter struct {
	Path   string
	cached types.ChannelIndexFile
	loaded bool
}

func NewChannelIndexFileAdapter(path string) *ChannelIndexFileAdapter {
	return &ChannelIndexFileAdapter{Path: path}
}

func (a *ChannelIndexFileAdapter) AvailableVersions(depType types.DependencyType, name string) ([]string, error) {
	index, err := a.load()
	if err != nil {
		return nil, err
	}
	switch depType {
	case types.DependencyTypeConda:
		records := lookupRecords(index.Packages, name)
		var versions []string
		for _, record := range records {
			if record.Version == "" {
				continue
			}
			versions = append(versions, record.Version)
		}
		if len(versions) > 0 {
			return uniqueStrings(versions), nil
		}
		// Test dependencies may only be published in the pip index.
		if pip, ok := index.Pip[name]; ok && len(pip) > 0 {
			return pip, nil
		}
		normalized := shared.NormalizePackageName(name)
		if pip, ok := index.Pip[normalized]; ok && len(pip) > 0 {
			return pip, nil
		}
		return nil, nil
	case types.DependencyTypePip:
		if versions, ok := index.Pip[name]; ok && len(versions) > 0 {
			return versions, nil
		}
		normalized := shared.NormalizePackageName(name)
		if versions, ok := index.Pip[normalized]; ok && len(versions) > 0 {
			return versions, nil
		}
		// Pip test dependencies may also be published as channel
		// packages.
		records := lookupRecords(index.Packages, name)
		var versions []string
		for _, record := range records {
			if record.Version == "" {
				continue
			}
			versions = append(versions, record.Version)
		}
		return uniqueStrings(versions), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown dependency type")
	}
}

func (a *ChannelIndexFileAdapter) Records() (map[string][]types.PackageRecord, error) {
	index, err := a.load()
	if err != nil {
		return nil, err
	}
	if index.Packages == nil {
		return map[string][]types.PackageRecord{}, nil
	}
	return index.Packages, nil
}

func (a *ChannelIndexFileAdapter) load() (types.ChannelIndexFile, error) {
	if a.loaded {
		return a.cached, nil
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return types.ChannelIndexFile{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("channel index file not found").
			WithCause(err)
	}
	var index types.ChannelIndexFile
	if err := yaml.Unmarshal(data, &index); err != nil {
		return types.ChannelIndexFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid channel index format").
			WithCause(err)
	}
	if index.Packages == nil {
		index.Packages = map[string][]types.PackageRecord{}
	}
	if index.Pip == nil {
		index.Pip = map[string][]string{}
	}
	a.cached = index
	a.loaded = true
	return index, nil
}

func lookupRecords(packages map[string][]types.PackageRecord, name string) []types.PackageRecord {
	if records, ok := packages[name]; ok {
		return records
	}
	normalized := shared.NormalizePackageName(name)
	if normalized == name {
		return nil
	}
	return packages[normalized]
}

func uniqueStrings(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

var _ ports.ChannelIndexPort = (*ChannelIndexFileAdapter)(nil)
