package ports

// VersionFilePort reads a package version from an external metadata
// file: either a bare single-line version or a python-style
// __version__ assignment.
type VersionFilePort interface {
	ReadVersion(path string) (string, error)
}
