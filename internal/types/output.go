package types

type LockEntry struct {
	Section RequirementSection
	Package string
	Version string
}

type ResolvedRequirement struct {
	Type    DependencyType
	Section RequirementSection
	Package string
	Version string
}

type UploadIntent struct {
	Channel   string
	Label     string
	Subdir    string
	BuildID   string
	Artifact  string
	CreatedAt string
	SHA256    string
}

type PinRecord struct {
	Dependency string
	Action     string
	Value      string
	Reason     string
	Owner      string
	ExpiresAt  string
}

type PinReport struct {
	Records []PinRecord
}

// BuildManifest describes one finished artifact build.
type BuildManifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	BuildNumber int    `yaml:"build_number"`
	Subdir      string `yaml:"subdir"`
	Artifact    string `yaml:"artifact"`
	SHA256      string `yaml:"sha256"`
	SdistSHA256 string `yaml:"sdist_sha256"`
	CreatedAt   string `yaml:"created_at"`
}

type TestCheck struct {
	Kind   string
	Target string
	Passed bool
	Detail string
}

type TestReport struct {
	Checks []TestCheck
}
