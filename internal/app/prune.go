package app

import (
	"context"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/adapters"
	"feedstock/internal/ports"
	"feedstock/internal/types"
)

func (s Service) PruneBuilds(ctx context.Context, req PruneRequest) (PruneResult, error) {
	backend := strings.ToLower(strings.TrimSpace(req.ChannelBackend))
	if backend == "" {
		backend = "file"
	}
	adapter, err := buildPruneAdapter(backend, req)
	if err != nil {
		return PruneResult{}, err
	}
	builds, err := adapter.ListBuilds(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	policy := types.BuildRetentionPolicy{
		KeepLast:        req.KeepLast,
		KeepDays:        req.KeepDays,
		ProtectLabels:   req.ProtectLabels,
		ProtectPrefixes: req.ProtectPrefixes,
		DryRun:          req.DryRun,
	}
	now := timeNow(s.Clock)
	plan := BuildPrunePlan(builds, policy, now)
	if policy.DryRun {
		return PruneResult{
			KeepCount:   len(plan.Keep),
			DeleteCount: len(plan.Delete),
			DryRun:      true,
		}, nil
	}
	var deleted []string
	for _, build := range plan.Delete {
		if err := adapter.DeleteBuild(ctx, build.BuildID); err != nil {
			return PruneResult{}, err
		}
		deleted = append(deleted, build.BuildID)
	}
	return PruneResult{
		KeepCount:   len(plan.Keep),
		DeleteCount: len(deleted),
		Deleted:     deleted,
		DryRun:      false,
	}, nil
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

func buildPruneAdapter(backend string, req PruneRequest) (ports.ChannelPort, error) {
	switch backend {
	case "file":
		channelDir := strings.TrimSpace(req.ChannelDir)
		if channelDir == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("channel dir is required for file backend")
		}
		return adapters.NewChannelFileAdapter(channelDir), nil
	case "http":
		endpoint := strings.TrimSpace(req.ChannelEndpoint)
		name := strings.TrimSpace(req.ChannelName)
		apiKey := strings.TrimSpace(req.ChannelAPIKey)
		if endpoint == "" || name == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("channel endpoint and name are required")
		}
		if apiKey == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("channel api key is required")
		}
		return adapters.NewChannelHTTPAdapter(
			endpoint,
			name,
			strings.TrimSpace(req.ChannelUser),
			apiKey,
			req.ChannelTimeoutSec,
			req.ChannelRetries,
			req.ChannelRetryDelayMs,
		), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported channel backend")
	}
}
