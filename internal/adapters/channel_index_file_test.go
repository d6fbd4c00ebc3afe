package adapters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"feedstock/internal/types"
)

const sampleIndexYAML = `subdirs:
  - noarch
packages:
  numpy:
    - version: 1.19.5
    - version: 1.21.6
      depends:
        - "python >=3.7"
  ruamel-yaml:
    - version: 0.17.21
pip:
  pytest:
    - 7.3.2
    - 7.4.0
`

func TestChannelIndexFileAvailableVersions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "channel-index.yaml", sampleIndexYAML)
	adapter := NewChannelIndexFileAdapter(path)

	versions, err := adapter.AvailableVersions(types.DependencyTypeConda, "numpy")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"1.19.5", "1.21.6"}, versions); diff != "" {
		t.Fatalf("unexpected versions (-want +got):\n%s", diff)
	}
}

func TestChannelIndexFileNormalizesLookup(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "channel-index.yaml", sampleIndexYAML)
	adapter := NewChannelIndexFileAdapter(path)

	versions, err := adapter.AvailableVersions(types.DependencyTypeConda, "ruamel.yaml")
	require.NoError(t, err)
	require.Equal(t, []string{"0.17.21"}, versions)
}

func TestChannelIndexFilePipVersions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "channel-index.yaml", sampleIndexYAML)
	adapter := NewChannelIndexFileAdapter(path)

	versions, err := adapter.AvailableVersions(types.DependencyTypePip, "pytest")
	require.NoError(t, err)
	require.Equal(t, []string{"7.3.2", "7.4.0"}, versions)
}

func TestChannelIndexFilePipFallsBackToPackages(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "channel-index.yaml", sampleIndexYAML)
	adapter := NewChannelIndexFileAdapter(path)

	versions, err := adapter.AvailableVersions(types.DependencyTypePip, "numpy")
	require.NoError(t, err)
	require.Equal(t, []string{"1.19.5", "1.21.6"}, versions)
}

func TestChannelIndexFileCondaFallsBackToPip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "channel-index.yaml", sampleIndexYAML)
	adapter := NewChannelIndexFileAdapter(path)

	// Test-section entries are typed conda but pytest is only
	// published in the pip index.
	versions, err := adapter.AvailableVersions(types.DependencyTypeConda, "pytest")
	require.NoError(t, err)
	require.Equal(t, []string{"7.3.2", "7.4.0"}, versions)
}

func TestChannelIndexFileRecords(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "channel-index.yaml", sampleIndexYAML)
	adapter := NewChannelIndexFileAdapter(path)

	records, err := adapter.Records()
	require.NoError(t, err)
	require.Len(t, records["numpy"], 2)
	require.Equal(t, []string{"python >=3.7"}, records["numpy"][1].Depends)
}

func TestChannelIndexFileMissing(t *testing.T) {
	adapter := NewChannelIndexFileAdapter("does-not-exist.yaml")
	_, err := adapter.AvailableVersions(types.DependencyTypeConda, "numpy")
	require.Error(t, err)
}
