package types

// PackageRecord is one installable build of a package as listed in a
// channel index.
type PackageRecord struct {
	Version     string   `yaml:"version"`
	BuildNumber int      `yaml:"build_number,omitempty"`
	BuildString string   `yaml:"build_string,omitempty"`
	Depends     []string `yaml:"depends,omitempty"`
	Subdir      string   `yaml:"subdir,omitempty"`
	SHA256      string   `yaml:"sha256,omitempty"`
}

type ChannelIndexFile struct {
	Subdirs  []string                   `yaml:"subdirs,omitempty"`
	Packages map[string][]PackageRecord `yaml:"packages"`

	// Pip lists plain version strings for pip-only test dependencies
	// that are not published as channel packages.
	Pip map[string][]string `yaml:"pip,omitempty"`
}
