package app

import "feedstock/internal/types"

type ValidateRequest struct {
	RecipePath string
	Variants   []string
}

type ValidateResult struct {
	PackageName string
	Version     string
	RecipeCount int
}

type RenderRequest struct {
	RecipePath       string
	Variants         []string
	ChannelIndex     string
	OutputDir        string
	RequirementsFile string
	BuildID          string
	UseSolver        bool
}

type RenderResult struct {
	PackageName string
	Version     string
	BuildID     string
	OutputDir   string
	LockCount   int
}

type BuildRequest struct {
	RecipePath       string
	Variants         []string
	ChannelIndex     string
	OutputDir        string
	RequirementsFile string
	SourceDir        string
	BuildID          string
	UseSolver        bool
}

type BuildResult struct {
	PackageName  string
	Version      string
	BuildID      string
	ArtifactPath string
	SHA256       string
}

type TestRequest struct {
	RecipePath   string
	Variants     []string
	OutputDir    string
	ArtifactPath string
	SourceDir    string
	RunCommands  bool
}

type TestResult struct {
	PackageName string
	Passed      int
	Failed      int
	Report      types.TestReport
}

type PublishRequest struct {
	OutputDir           string
	ChannelDir          string
	ChannelBackend      string
	SBOM                bool
	ChannelEndpoint     string
	ChannelName         string
	ChannelUser         string
	ChannelAPIKey       string
	ChannelTimeoutSec   int
	ChannelRetries      int
	ChannelRetryDelayMs int
}

type PublishResult struct {
	BuildID string
	Label   string
}

type IndexRequest struct {
	Output           string
	Endpoints        []string
	Subdirs          []string
	User             string
	APIKey           string
	Workers          int
	LocalDirs        []string
	PipIndex         string
	PipPackages      []string
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
}

type IndexResult struct {
	OutputPath   string
	PackageCount int
	PipCount     int
}

type PruneRequest struct {
	ChannelBackend      string
	ChannelDir          string
	ChannelEndpoint     string
	ChannelName         string
	ChannelUser         string
	ChannelAPIKey       string
	ChannelTimeoutSec   int
	ChannelRetries      int
	ChannelRetryDelayMs int
	KeepLast            int
	KeepDays            int
	ProtectLabels       []string
	ProtectPrefixes     []string
	DryRun              bool
}

type PruneResult struct {
	KeepCount   int
	DeleteCount int
	Deleted     []string
	DryRun      bool
}

type InspectRequest struct {
	OutputDir string
}

type InspectSectionSummary struct {
	Section  types.RequirementSection
	Count    int
	Packages []string
}

type InspectResult struct {
	LockCount  int
	Sections   []InspectSectionSummary
	PinRecords []types.PinRecord
}
