package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
)

func (s Service) Index(ctx context.Context, req IndexRequest) (IndexResult, error) {
	output := strings.TrimSpace(req.Output)
	if output == "" {
		return IndexResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output path is required")
	}
	index, err := s.IndexBuild.Build(ctx, ports.ChannelIndexBuildRequest{
		Endpoints:        req.Endpoints,
		Subdirs:          req.Subdirs,
		User:             strings.TrimSpace(req.User),
		APIKey:           strings.TrimSpace(req.APIKey),
		Workers:          req.Workers,
		LocalDirs:        req.LocalDirs,
		PipIndex:         strings.TrimSpace(req.PipIndex),
		PipPackages:      req.PipPackages,
		HTTPTimeoutSec:   req.HTTPTimeoutSec,
		HTTPRetries:      req.HTTPRetries,
		HTTPRetryDelayMs: req.HTTPRetryDelayMs,
	})
	if err != nil {
		return IndexResult{}, err
	}
	if err := s.IndexWriter.Write(output, index); err != nil {
		return IndexResult{}, err
	}
	return IndexResult{
		OutputPath:   output,
		PackageCount: len(index.Packages),
		PipCount:     len(index.Pip),
	}, nil
}
