package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feedstock/internal/app"
)

type pruneOptions struct {
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

func newPruneCommand() *cobra.Command {
	opts := pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune channel builds based on retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ChannelBackend, "channel-backend", "file", "Channel backend (file or http)")
	cmd.Flags().StringVar(&opts.ChannelDir, "channel-dir", "", "Channel directory for file backend")
	cmd.Flags().StringVar(&opts.ChannelEndpoint, "channel-endpoint", "", "Channel server base URL")
	cmd.Flags().StringVar(&opts.ChannelName, "channel-name", "", "Channel name for http backend")
	cmd.Flags().StringVar(&opts.ChannelUser, "channel-user", "", "Username for basic auth (defaults to api)")
	cmd.Flags().StringVar(&opts.ChannelAPIKey, "channel-api-key", "", "API key or password for basic auth")
	cmd.Flags().IntVar(&opts.ChannelTimeoutSec, "channel-timeout", 60, "Channel HTTP timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&opts.ChannelRetries, "channel-retries", 3, "Channel API retries (0 = default)")
	cmd.Flags().IntVar(&opts.ChannelRetryDelayMs, "channel-retry-delay-ms", 200, "Channel retry base delay in ms (0 = default)")
	cmd.Flags().IntVar(&opts.KeepLast, "keep-last", 0, "Keep last N builds per group")
	cmd.Flags().IntVar(&opts.KeepDays, "keep-days", 0, "Keep builds newer than N days")
	cmd.Flags().StringSliceVar(&opts.ProtectLabels, "protect-label", nil, "Protect labeled builds from pruning")
	cmd.Flags().StringSliceVar(&opts.ProtectPrefixes, "protect-prefix", nil, "Protect build id prefixes from pruning")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report prune actions without deleting")

	_ = viper.BindPFlag("channel_backend", cmd.Flags().Lookup("channel-backend"))
	_ = viper.BindPFlag("channel_dir", cmd.Flags().Lookup("channel-dir"))
	_ = viper.BindPFlag("channel_endpoint", cmd.Flags().Lookup("channel-endpoint"))
	_ = viper.BindPFlag("channel_name", cmd.Flags().Lookup("channel-name"))
	_ = viper.BindPFlag("channel_user", cmd.Flags().Lookup("channel-user"))
	_ = viper.BindPFlag("channel_api_key", cmd.Flags().Lookup("channel-api-key"))
	_ = viper.BindPFlag("channel_timeout_sec", cmd.Flags().Lookup("channel-timeout"))
	_ = viper.BindPFlag("channel_retries", cmd.Flags().Lookup("channel-retries"))
	_ = viper.BindPFlag("channel_retry_delay_ms", cmd.Flags().Lookup("channel-retry-delay-ms"))
	_ = viper.BindPFlag("keep_last", cmd.Flags().Lookup("keep-last"))
	_ = viper.BindPFlag("keep_days", cmd.Flags().Lookup("keep-days"))
	_ = viper.BindPFlag("protect_labels", cmd.Flags().Lookup("protect-label"))
	_ = viper.BindPFlag("protect_prefixes", cmd.Flags().Lookup("protect-prefix"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runPrune(ctx context.Context, cmd *cobra.Command, opts pruneOptions) error {
	service := newAppService()
	result, err := service.PruneBuilds(ctx, app.PruneRequest{
		ChannelBackend:      resolveString(cmd, opts.ChannelBackend, "channel_backend", "channel-backend"),
		ChannelDir:          resolveString(cmd, opts.ChannelDir, "channel_dir", "channel-dir"),
		ChannelEndpoint:     resolveString(cmd, opts.ChannelEndpoint, "channel_endpoint", "channel-endpoint"),
		ChannelName:         resolveString(cmd, opts.ChannelName, "channel_name", "channel-name"),
		ChannelUser:         resolveString(cmd, opts.ChannelUser, "channel_user", "channel-user"),
		ChannelAPIKey:       resolveString(cmd, opts.ChannelAPIKey, "channel_api_key", "channel-api-key"),
		ChannelTimeoutSec:   resolveInt(cmd, opts.ChannelTimeoutSec, "channel_timeout_sec", "channel-timeout"),
		ChannelRetries:      resolveInt(cmd, opts.ChannelRetries, "channel_retries", "channel-retries"),
		ChannelRetryDelayMs: resolveInt(cmd, opts.ChannelRetryDelayMs, "channel_retry_delay_ms", "channel-retry-delay-ms"),
		KeepLast:            resolveInt(cmd, opts.KeepLast, "keep_last", "keep-last"),
		KeepDays:            resolveInt(cmd, opts.KeepDays, "keep_days", "keep-days"),
		ProtectLabels:       resolveStrings(cmd, opts.ProtectLabels, "protect_labels", "protect-label"),
		ProtectPrefixes:     resolveStrings(cmd, opts.ProtectPrefixes, "protect_prefixes", "protect-prefix"),
		DryRun:              resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	})
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Printf("dry-run: keep=%d delete=%d\n", result.KeepCount, result.DeleteCount)
		return nil
	}
	fmt.Printf("pruned builds: %d\n", result.DeleteCount)
	return nil
}
