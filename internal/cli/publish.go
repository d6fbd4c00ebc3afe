package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feedstock/internal/app"
)

type publishOptions struct {
	OutputDir           string
	ChannelDir          string
	SBOM                bool
	ChannelBackend      string
	ChannelEndpoint     string
	ChannelName         string
	ChannelUser         string
	ChannelAPIKey       string
	ChannelTimeoutSec   int
	ChannelRetries      int
	ChannelRetryDelayMs int
}

func newPublishCommand() *cobra.Command {
	opts := publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the built artifact to a channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory containing upload.intent")
	cmd.Flags().StringVar(&opts.ChannelDir, "channel-dir", "", "Channel directory for file backend")
	cmd.Flags().BoolVar(&opts.SBOM, "sbom", true, "Generate SBOM alongside build metadata")
	cmd.Flags().StringVar(&opts.ChannelBackend, "channel-backend", "file", "Channel backend (file or http)")
	cmd.Flags().StringVar(&opts.ChannelEndpoint, "channel-endpoint", "", "Channel server base URL")
	cmd.Flags().StringVar(&opts.ChannelName, "channel-name", "", "Channel name (defaults to upload intent channel)")
	cmd.Flags().StringVar(&opts.ChannelUser, "channel-user", "", "Username for basic auth (defaults to api)")
	cmd.Flags().StringVar(&opts.ChannelAPIKey, "channel-api-key", "", "API key or password for basic auth")
	cmd.Flags().IntVar(&opts.ChannelTimeoutSec, "channel-timeout", 60, "Channel HTTP timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&opts.ChannelRetries, "channel-retries", 3, "Channel upload retries (0 = default)")
	cmd.Flags().IntVar(&opts.ChannelRetryDelayMs, "channel-retry-delay-ms", 200, "Channel retry base delay in ms (0 = default)")

	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("channel_dir", cmd.Flags().Lookup("channel-dir"))
	_ = viper.BindPFlag("sbom", cmd.Flags().Lookup("sbom"))
	_ = viper.BindPFlag("channel_backend", cmd.Flags().Lookup("channel-backend"))
	_ = viper.BindPFlag("channel_endpoint", cmd.Flags().Lookup("channel-endpoint"))
	_ = viper.BindPFlag("channel_name", cmd.Flags().Lookup("channel-name"))
	_ = viper.BindPFlag("channel_user", cmd.Flags().Lookup("channel-user"))
	_ = viper.BindPFlag("channel_api_key", cmd.Flags().Lookup("channel-api-key"))
	_ = viper.BindPFlag("channel_timeout_sec", cmd.Flags().Lookup("channel-timeout"))
	_ = viper.BindPFlag("channel_retries", cmd.Flags().Lookup("channel-retries"))
	_ = viper.BindPFlag("channel_retry_delay_ms", cmd.Flags().Lookup("channel-retry-delay-ms"))
	return cmd
}

func runPublish(ctx context.Context, cmd *cobra.Command, opts publishOptions) error {
	service := newAppService()
	result, err := service.Publish(ctx, app.PublishRequest{
		OutputDir:           resolveString(cmd, opts.OutputDir, "output", "output"),
		ChannelDir:          resolveString(cmd, opts.ChannelDir, "channel_dir", "channel-dir"),
		SBOM:                resolveBool(cmd, opts.SBOM, "sbom", "sbom"),
		ChannelBackend:      resolveString(cmd, opts.ChannelBackend, "channel_backend", "channel-backend"),
		ChannelEndpoint:     resolveString(cmd, opts.ChannelEndpoint, "channel_endpoint", "channel-endpoint"),
		ChannelName:         resolveString(cmd, opts.ChannelName, "channel_name", "channel-name"),
		ChannelUser:         resolveString(cmd, opts.ChannelUser, "channel_user", "channel-user"),
		ChannelAPIKey:       resolveString(cmd, opts.ChannelAPIKey, "channel_api_key", "channel-api-key"),
		ChannelTimeoutSec:   resolveInt(cmd, opts.ChannelTimeoutSec, "channel_timeout_sec", "channel-timeout"),
		ChannelRetries:      resolveInt(cmd, opts.ChannelRetries, "channel_retries", "channel-retries"),
		ChannelRetryDelayMs: resolveInt(cmd, opts.ChannelRetryDelayMs, "channel_retry_delay_ms", "channel-retry-delay-ms"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("published: %s\n", result.BuildID)
	return nil
}
