package app

import (
	"time"

	"feedstock/internal/adapters"
	"feedstock/internal/ports"
)

type Service struct {
	Recipes        ports.RecipeLoaderPort
	Variants       ports.VariantSourcePort
	Workspace      ports.WorkspacePort
	Requirements   ports.RequirementsFilePort
	OutputReader   ports.OutputReaderPort
	SBOMWriter     ports.SBOMPort
	IndexBuild     ports.ChannelIndexBuilderPort
	IndexWriter    ports.ChannelIndexWriterPort
	Artifacts      ports.ArtifactBuilderPort
	ArtifactReader ports.ArtifactReaderPort
	TestRunner     ports.TestRunnerPort
	Clock          func() time.Time
}

func NewService() Service {
	recipes := adapters.NewRecipeFileAdapter()
	return Service{
		Recipes:        recipes,
		Variants:       adapters.NewVariantSourceAdapter(recipes),
		Workspace:      adapters.NewWorkspaceAdapter(),
		Requirements:   adapters.NewRequirementsFileAdapter(),
		OutputReader:   adapters.NewOutputReaderAdapter(),
		SBOMWriter:     adapters.NewSBOMWriterAdapter(),
		IndexBuild:     adapters.NewChannelIndexBuilderAdapter(),
		IndexWriter:    adapters.NewChannelIndexWriterAdapter(),
		Artifacts:      adapters.NewArtifactBuilderAdapter(),
		ArtifactReader: adapters.NewArtifactReaderAdapter(),
		TestRunner:     adapters.NewTestRunnerAdapter(),
		Clock:          time.Now,
	}
}
