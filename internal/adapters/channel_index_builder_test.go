package adapters

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"feedstock/internal/ports"
	"feedstock/internal/types"
	"gopkg.in/yaml.v3"
)

const sampleRepodataJSON = `{
  "packages": {
    "numpy-1.21.6-py310_0.tar.bz2": {
      "name": "numpy",
      "version": "1.21.6",
      "build": "py310_0",
      "build_number": 0,
      "depends": ["python >=3.10"]
    },
    "Ruamel.Yaml-0.17.21-py310_0.tar.bz2": {
      "name": "Ruamel.Yaml",
      "version": "0.17.21",
      "build": "py310_0",
      "build_number": 0
    }
  },
  "packages.conda": {
    "numpy-1.22.4-py310_0.conda": {
      "name": "numpy",
      "version": "1.22.4",
      "build": "py310_0",
      "build_number": 0
    }
  }
}`

func TestChannelIndexBuildFromLocalDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "noarch/repodata.json", sampleRepodataJSON)

	index, err := NewChannelIndexBuilderAdapter().Build(t.Context(), ports.ChannelIndexBuildRequest{
		LocalDirs: []string{dir},
		Subdirs:   []string{"noarch"},
	})
	require.NoError(t, err)

	numpy := index.Packages["numpy"]
	require.Len(t, numpy, 2)
	// Records are sorted oldest first.
	require.Equal(t, "1.21.6", numpy[0].Version)
	require.Equal(t, "1.22.4", numpy[1].Version)
	require.Equal(t, []string{"python >=3.10"}, numpy[0].Depends)
	require.Equal(t, "noarch", numpy[0].Subdir)

	// Package names are normalized on ingest.
	require.Len(t, index.Packages["ruamel-yaml"], 1)
	require.NotContains(t, index.Packages, "Ruamel.Yaml")
}

func TestChannelIndexBuildFromEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/noarch/repodata.json.gz":
			w.WriteHeader(http.StatusNotFound)
		case "/noarch/repodata.json":
			io.WriteString(w, sampleRepodataJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	index, err := NewChannelIndexBuilderAdapter().Build(t.Context(), ports.ChannelIndexBuildRequest{
		Endpoints: []string{server.URL},
		Subdirs:   []string{"noarch"},
	})
	require.NoError(t, err)
	require.Len(t, index.Packages["numpy"], 2)
}

func TestChannelIndexBuildMergesEndpoints(t *testing.T) {
	first := httptest.NewServer(repodataHandler(`{"packages": {"a": {"name": "numpy", "version": "1.21.6"}}}`))
	defer first.Close()
	second := httptest.NewServer(repodataHandler(`{"packages": {"b": {"name": "numpy", "version": "1.22.4"}}}`))
	defer second.Close()

	index, err := NewChannelIndexBuilderAdapter().Build(t.Context(), ports.ChannelIndexBuildRequest{
		Endpoints: []string{first.URL, second.URL},
		Subdirs:   []string{"noarch"},
		Workers:   2,
	})
	require.NoError(t, err)
	versions := []string{}
	for _, record := range index.Packages["numpy"] {
		versions = append(versions, record.Version)
	}
	if diff := cmp.Diff([]string{"1.21.6", "1.22.4"}, versions); diff != "" {
		t.Fatalf("unexpected merged versions (-want +got):\n%s", diff)
	}
}

func repodataHandler(payload string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/noarch/repodata.json" {
			io.WriteString(w, payload)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}

func TestChannelIndexBuildWithPipIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/noarch/repodata.json":
			io.WriteString(w, `{"packages": {}}`)
		case "/simple/pytest/":
			io.WriteString(w, `<html><body>
				<a href="pytest-7.3.0.tar.gz#sha256=abc">pytest-7.3.0.tar.gz</a>
				<a href="pytest-7.4.0-py3-none-any.whl">pytest-7.4.0-py3-none-any.whl</a>
			</body></html>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	index, err := NewChannelIndexBuilderAdapter().Build(t.Context(), ports.ChannelIndexBuildRequest{
		Endpoints:   []string{server.URL},
		Subdirs:     []string{"noarch"},
		PipIndex:    server.URL,
		PipPackages: []string{"pytest"},
	})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"7.3.0", "7.4.0"}, index.Pip["pytest"]); diff != "" {
		t.Fatalf("unexpected pip versions (-want +got):\n%s", diff)
	}
}

func TestChannelIndexBuildRequiresSources(t *testing.T) {
	_, err := NewChannelIndexBuilderAdapter().Build(t.Context(), ports.ChannelIndexBuildRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoints or local dirs")
}

func TestChannelIndexWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "channel-index.yaml")
	index := types.ChannelIndexFile{
		Subdirs: []string{"noarch"},
		Packages: map[string][]types.PackageRecord{
			"numpy": {{Version: "1.21.6", Subdir: "noarch"}},
		},
		Pip: map[string][]string{"pytest": {"7.4.0"}},
	}

	require.NoError(t, NewChannelIndexWriterAdapter().Write(path, index))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got types.ChannelIndexFile
	require.NoError(t, yaml.Unmarshal(data, &got))
	if diff := cmp.Diff(index, got); diff != "" {
		t.Fatalf("unexpected index round trip (-want +got):\n%s", diff)
	}
}

func TestChannelIndexWriterRequiresPath(t *testing.T) {
	err := NewChannelIndexWriterAdapter().Write("", types.ChannelIndexFile{})
	require.Error(t, err)
}

func TestParsePipVersionFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "sdist", filename: "geomdl-5.3.1.tar.gz", want: "5.3.1"},
		{name: "wheel", filename: "numpy-1.22.4-cp310-cp310-manylinux_2_17_x86_64.whl", want: "1.22.4"},
		{name: "universal wheel", filename: "six-1.16.0-py2.py3-none-any.whl", want: "1.16.0"},
		{name: "zip sdist", filename: "geomdl-5.3.0.zip", want: "5.3.0"},
		{name: "not a release file", filename: "index.html", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parsePipVersionFromFilename(tt.filename))
		})
	}
}

func TestNormalizePipSimpleIndex(t *testing.T) {
	require.Equal(t, "https://pypi.example/simple/", normalizePipSimpleIndex("https://pypi.example"))
	require.Equal(t, "https://pypi.example/simple/", normalizePipSimpleIndex("https://pypi.example/simple/"))
}
