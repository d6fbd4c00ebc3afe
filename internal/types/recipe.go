package types

type PackageInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`

	// VersionFile points at an external metadata file the version is
	// read from (a single-line version file or a python module with a
	// __version__ assignment).  When set, Version is filled in at load
	// time and must not also be declared inline.
	VersionFile string `yaml:"version_file,omitempty"`
}

type SourceInfo struct {
	Path   string `yaml:"path,omitempty"`
	URL    string `yaml:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
}

type BuildSection struct {
	Number int        `yaml:"number"`
	Noarch NoarchType `yaml:"noarch,omitempty"`

	// Script lists the build stages in order.  The supported stages are
	// "sdist" (pack the source tree) and "install" (stage the sdist into
	// the final artifact without pulling transitive dependencies).
	Script []string `yaml:"script,omitempty"`
}

type Requirements struct {
	Host []string `yaml:"host,omitempty"`
	Run  []string `yaml:"run,omitempty"`
	Test []string `yaml:"test,omitempty"`
}

type TestSection struct {
	Imports     []string `yaml:"imports,omitempty"`
	VersionAttr string   `yaml:"version_attr,omitempty"`
	Commands    []string `yaml:"commands,omitempty"`
	SourceFiles []string `yaml:"source_files,omitempty"`
	Requires    []string `yaml:"requires,omitempty"`

	// RequirementsFile optionally points at a pip-style requirements
	// file (a CI requirements list) whose entries join the test
	// dependency set.
	RequirementsFile string `yaml:"requirements_file,omitempty"`
}

type About struct {
	Home          string `yaml:"home,omitempty"`
	License       string `yaml:"license"`
	LicenseFamily string `yaml:"license_family,omitempty"`
	LicenseFile   string `yaml:"license_file,omitempty"`
	Summary       string `yaml:"summary,omitempty"`
	Description   string `yaml:"description,omitempty"`
	DocURL        string `yaml:"doc_url,omitempty"`
	DevURL        string `yaml:"dev_url,omitempty"`
}

type Extra struct {
	Maintainers []string `yaml:"maintainers"`
}

type ChannelTarget struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Subdir string `yaml:"subdir"`

	// Pins are extra "name op version" constraints applied to every
	// matching requirement before resolution.
	Pins []string `yaml:"pins,omitempty"`
}

// RecipeDefaults provides recipe-level defaults that the CLI and
// application layer use when a value is not explicitly provided via
// flags or environment variables.
type RecipeDefaults struct {
	ChannelIndex string   `yaml:"channel_index,omitempty"`
	Output       string   `yaml:"output,omitempty"`
	Variants     []string `yaml:"variants,omitempty"`
}

type PinDirective struct {
	Dependency string `yaml:"dependency"`
	Action     string `yaml:"action"`
	Value      string `yaml:"value,omitempty"`
	Reason     string `yaml:"reason"`
	Owner      string `yaml:"owner"`
	ExpiresAt  string `yaml:"expires_at,omitempty"`
}

// Recipe is the top-level document for both recipe and variant files.
// A variant carries only pins, extra requirements, and directives; the
// remaining sections are meaningful for kind: recipe.
type Recipe struct {
	APIVersion   string         `yaml:"api_version"`
	Kind         RecipeKind     `yaml:"kind"`
	Package      PackageInfo    `yaml:"package"`
	Source       SourceInfo     `yaml:"source,omitempty"`
	Build        BuildSection   `yaml:"build,omitempty"`
	Requirements Requirements   `yaml:"requirements,omitempty"`
	Test         TestSection    `yaml:"test,omitempty"`
	About        About          `yaml:"about,omitempty"`
	Extra        Extra          `yaml:"extra,omitempty"`
	Channel      ChannelTarget  `yaml:"channel,omitempty"`
	Defaults     RecipeDefaults `yaml:"defaults,omitempty"`

	// Pins maps a package name to a specifier applied wherever that
	// package appears in the host or run sections (variant documents).
	Pins map[string]string `yaml:"pins,omitempty"`

	Directives []PinDirective `yaml:"directives,omitempty"`
}
