package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"feedstock/internal/adapters"
	"feedstock/internal/types"
)

func seedChannel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	artifact := writeWorkspaceFile(t, dir, "geomdl-5.3.1-0.tar.zst", "artifact-bytes")
	channelDir := filepath.Join(dir, "channel")
	channel := adapters.NewChannelFileAdapter(channelDir)

	uploads := []struct {
		buildID   string
		label     string
		createdAt string
	}{
		{buildID: "geomdl-aaa111", label: "release", createdAt: "2026-08-01T00:00:00Z"},
		{buildID: "geomdl-bbb222", label: "", createdAt: "2026-08-10T00:00:00Z"},
		{buildID: "geomdl-ccc333", label: "", createdAt: "2026-08-15T00:00:00Z"},
	}
	for _, upload := range uploads {
		err := channel.Upload(t.Context(), types.UploadIntent{
			Channel:   "internal",
			Label:     upload.label,
			Subdir:    "noarch",
			BuildID:   upload.buildID,
			CreatedAt: upload.createdAt,
		}, artifact)
		require.NoError(t, err)
	}
	return channelDir
}

func TestPruneBuildsDryRun(t *testing.T) {
	channelDir := seedChannel(t)

	result, err := newTestService().PruneBuilds(t.Context(), PruneRequest{
		ChannelDir:    channelDir,
		KeepLast:      1,
		ProtectLabels: []string{"release"},
		DryRun:        true,
	})
	require.NoError(t, err)
	require.True(t, result.DryRun)
	require.Equal(t, 2, result.KeepCount)
	require.Equal(t, 1, result.DeleteCount)
	require.Empty(t, result.Deleted)

	// Dry run leaves the channel untouched.
	_, err = os.Stat(filepath.Join(channelDir, "builds", "geomdl-bbb222.build"))
	require.NoError(t, err)
}

func TestPruneBuildsDeletes(t *testing.T) {
	channelDir := seedChannel(t)

	result, err := newTestService().PruneBuilds(t.Context(), PruneRequest{
		ChannelDir:    channelDir,
		KeepLast:      1,
		ProtectLabels: []string{"release"},
	})
	require.NoError(t, err)
	require.False(t, result.DryRun)
	require.Equal(t, []string{"geomdl-bbb222"}, result.Deleted)

	_, err = os.Stat(filepath.Join(channelDir, "builds", "geomdl-bbb222.build"))
	require.True(t, os.IsNotExist(err))
	// The labeled build and the newest build survive.
	_, err = os.Stat(filepath.Join(channelDir, "builds", "geomdl-aaa111.build"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(channelDir, "builds", "geomdl-ccc333.build"))
	require.NoError(t, err)
}

func TestPruneBuildsRequiresChannelDir(t *testing.T) {
	_, err := newTestService().PruneBuilds(t.Context(), PruneRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "channel dir")
}

func TestPruneBuildsHTTPRequiresCredentials(t *testing.T) {
	_, err := newTestService().PruneBuilds(t.Context(), PruneRequest{
		ChannelBackend:  "http",
		ChannelEndpoint: "https://channels.example",
		ChannelName:     "internal",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}
