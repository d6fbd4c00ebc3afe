package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/adapters"
	"feedstock/internal/ports"
	"feedstock/internal/types"
)

func (s Service) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is required")
	}
	channelDir := strings.TrimSpace(req.ChannelDir)
	if channelDir == "" {
		channelDir = filepath.Join(outputDir, "channel")
	}
	intent, err := s.OutputReader.ReadUploadIntent(filepath.Join(outputDir, "upload.intent"))
	if err != nil {
		return PublishResult{}, err
	}
	if strings.TrimSpace(intent.Artifact) == "" {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("upload intent has no artifact; run build first")
	}
	artifactPath := intent.Artifact
	if !filepath.IsAbs(artifactPath) {
		artifactPath = filepath.Join(outputDir, artifactPath)
	}

	backend := strings.ToLower(strings.TrimSpace(req.ChannelBackend))
	if backend == "" {
		backend = "file"
	}
	var channel ports.ChannelPort
	switch backend {
	case "file":
		channel = adapters.NewChannelFileAdapter(channelDir)
	case "http":
		endpoint := strings.TrimSpace(req.ChannelEndpoint)
		if endpoint == "" {
			return PublishResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("channel endpoint is required for http backend")
		}
		apiKey := strings.TrimSpace(req.ChannelAPIKey)
		if apiKey == "" {
			return PublishResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("channel api key is required for http backend")
		}
		name := strings.TrimSpace(req.ChannelName)
		if name == "" {
			name = intent.Channel
		}
		channel = adapters.NewChannelHTTPAdapter(
			endpoint,
			name,
			strings.TrimSpace(req.ChannelUser),
			apiKey,
			req.ChannelTimeoutSec,
			req.ChannelRetries,
			req.ChannelRetryDelayMs,
		)
	default:
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported channel backend")
	}

	if err := channel.Upload(ctx, intent, artifactPath); err != nil {
		return PublishResult{}, err
	}
	if strings.TrimSpace(intent.Label) != "" {
		if err := channel.Promote(ctx, intent.BuildID, intent.Label); err != nil {
			return PublishResult{}, err
		}
	}

	if req.SBOM {
		locks, err := s.OutputReader.ReadLock(filepath.Join(outputDir, "render.lock"))
		if err != nil {
			return PublishResult{}, err
		}
		// The SBOM describes what ships with the artifact: the locked
		// run dependencies, not the host or test sections.
		var runLocks []types.LockEntry
		for _, entry := range locks {
			if entry.Section == types.RequirementSectionRun {
				runLocks = append(runLocks, entry)
			}
		}
		if err := s.SBOMWriter.WriteSBOM(channelDir, intent.BuildID, intent.CreatedAt, runLocks); err != nil {
			return PublishResult{}, err
		}
	}
	return PublishResult{BuildID: intent.BuildID, Label: intent.Label}, nil
}
