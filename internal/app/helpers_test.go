package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const flowRecipeYAML = `api_version: v1
kind: recipe
package:
  name: geomdl
  version: 5.3.1
source:
  path: ./src
build:
  number: 0
  noarch: python
  script: [sdist, install]
requirements:
  host:
    - python >=3.8
    - setuptools
  run:
    - python >=3.8
    - numpy >=1.19
  test:
    - pytest >=7
test:
  imports:
    - geomdl
  version_attr: __version__
about:
  license: MIT
  home: https://github.com/orbingol/NURBS-Python
extra:
  maintainers:
    - dev-team
channel:
  name: internal
  label: main
  subdir: noarch
`

const flowIndexYAML = `subdirs:
  - noarch
packages:
  python:
    - version: 3.8.16
    - version: 3.10.8
  setuptools:
    - version: 65.5.0
  numpy:
    - version: 1.19.5
    - version: 1.21.6
pip:
  pytest:
    - 7.4.0
`

type workspaceFixture struct {
	Dir          string
	RecipePath   string
	ChannelIndex string
	OutputDir    string
}

func writeWorkspaceFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setupWorkspace(t *testing.T) workspaceFixture {
	t.Helper()
	dir := t.TempDir()
	recipePath := writeWorkspaceFile(t, dir, "recipe.yaml", flowRecipeYAML)
	indexPath := writeWorkspaceFile(t, dir, "channel-index.yaml", flowIndexYAML)
	writeWorkspaceFile(t, dir, "src/geomdl/__init__.py", "__version__ = \"5.3.1\"\n")
	writeWorkspaceFile(t, dir, "src/geomdl/bspline.py", "class BSpline:\n    pass\n")
	writeWorkspaceFile(t, dir, "src/setup.py", "from setuptools import setup\nsetup()\n")
	return workspaceFixture{
		Dir:          dir,
		RecipePath:   recipePath,
		ChannelIndex: indexPath,
		OutputDir:    filepath.Join(dir, "out"),
	}
}

func newTestService() Service {
	s := NewService()
	s.Clock = func() time.Time {
		return time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	}
	return s
}

func readOutputFile(t *testing.T, outputDir string, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outputDir, name))
	require.NoError(t, err)
	return string(data)
}
