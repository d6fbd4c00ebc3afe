package ports

import (
	"context"

	"feedstock/internal/types"
)

type ChannelIndexPort interface {
	AvailableVersions(depType types.DependencyType, name string) ([]string, error)
	Records() (map[string][]types.PackageRecord, error)
}

type ChannelPort interface {
	Upload(ctx context.Context, intent types.UploadIntent, artifactPath string) error
	Promote(ctx context.Context, buildID string, label string) error
	ListBuilds(ctx context.Context) ([]types.BuildInfo, error)
	DeleteBuild(ctx context.Context, buildID string) error
}
