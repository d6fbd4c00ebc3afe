package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"feedstock/internal/types"
)

func TestOutputFileAdapterFormats(t *testing.T) {
	dir := t.TempDir()
	adapter := NewOutputFileAdapter(dir)

	err := adapter.WriteLock([]types.LockEntry{
		{Section: types.RequirementSectionRun, Package: "numpy", Version: "1.21.6"},
		{Section: types.RequirementSectionHost, Package: "python", Version: "3.10.8"},
		{Section: types.RequirementSectionRun, Package: "geomdl", Version: "5.3.1"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "render.lock"))
	require.NoError(t, err)
	want := "host python=3.10.8\nrun geomdl=5.3.1\nrun numpy=1.21.6"
	if diff := cmp.Diff(want, strings.TrimSpace(string(data))); diff != "" {
		t.Fatalf("unexpected render.lock content (-want +got):\n%s", diff)
	}

	err = adapter.WriteUploadIntent(types.UploadIntent{
		Channel:   "internal",
		Label:     "main",
		Subdir:    "noarch",
		BuildID:   "geomdl-0a1b2c3d4e5f",
		CreatedAt: "2026-08-20T00:00:00Z",
	})
	require.NoError(t, err)

	intent, err := os.ReadFile(filepath.Join(dir, "upload.intent"))
	require.NoError(t, err)
	containsChecks := []struct {
		name string
		got  bool
		want bool
	}{
		{name: "channel", got: strings.Contains(string(intent), "channel=internal"), want: true},
		{name: "build id", got: strings.Contains(string(intent), "build_id=geomdl-0a1b2c3d4e5f"), want: true},
		{name: "empty artifact", got: strings.Contains(string(intent), "artifact=\n"), want: true},
	}
	for _, tt := range containsChecks {
		if diff := cmp.Diff(tt.want, tt.got); diff != "" {
			t.Fatalf("unexpected upload.intent %s (-want +got):\n%s", tt.name, diff)
		}
	}

	err = adapter.WritePinReport(types.PinReport{
		Records: []types.PinRecord{
			{Dependency: "conda:numpy", Action: "force", Value: "1.21.6", Reason: "abi", Owner: "team"},
		},
	})
	require.NoError(t, err)

	report, err := os.ReadFile(filepath.Join(dir, "pin.report"))
	require.NoError(t, err)
	require.Contains(t, string(report), "conda:numpy,force,1.21.6,abi,team")

	err = adapter.WriteResolvedRequirements([]types.ResolvedRequirement{
		{Type: types.DependencyTypePip, Section: types.RequirementSectionTest, Package: "pytest", Version: "7.4.0"},
		{Type: types.DependencyTypeConda, Section: types.RequirementSectionRun, Package: "numpy", Version: "1.21.6"},
	})
	require.NoError(t, err)

	resolved, err := os.ReadFile(filepath.Join(dir, "requirements.resolved"))
	require.NoError(t, err)
	wantResolved := "conda,run,numpy==1.21.6\npip,test,pytest==7.4.0"
	if diff := cmp.Diff(wantResolved, strings.TrimSpace(string(resolved))); diff != "" {
		t.Fatalf("unexpected requirements.resolved content (-want +got):\n%s", diff)
	}
}

func TestOutputFileAdapterBuildManifest(t *testing.T) {
	dir := t.TempDir()
	adapter := NewOutputFileAdapter(dir)

	err := adapter.WriteBuildManifest(types.BuildManifest{
		Name:        "geomdl",
		Version:     "5.3.1",
		BuildNumber: 0,
		Subdir:      "noarch",
		Artifact:    "artifacts/noarch/geomdl-5.3.1-0.tar.zst",
		SHA256:      "abc123",
		CreatedAt:   "2026-08-20T00:00:00Z",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "build.manifest"))
	require.NoError(t, err)
	require.Contains(t, string(data), "name: geomdl")
	require.Contains(t, string(data), "artifact: artifacts/noarch/geomdl-5.3.1-0.tar.zst")
}

func TestOutputFileAdapterRequiresDir(t *testing.T) {
	adapter := NewOutputFileAdapter("")
	err := adapter.WriteLock(nil)
	require.Error(t, err)
}
