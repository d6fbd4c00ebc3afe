package ports

import (
	"context"

	"feedstock/internal/types"
)

type ChannelIndexBuildRequest struct {
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

type ChannelIndexBuilderPort interface {
	Build(ctx context.Context, request ChannelIndexBuildRequest) (types.ChannelIndexFile, error)
}

type ChannelIndexWriterPort interface {
	Write(path string, index types.ChannelIndexFile) error
}
