package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feedstock/internal/app"
)

type indexOptions struct {
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

func newIndexCommand() *cobra.Command {
	opts := indexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a channel index from repodata and pip sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Output, "output", "channel-index.yaml", "Channel index output path")
	cmd.Flags().StringSliceVar(&opts.Endpoints, "endpoint", nil, "Channel endpoint base URLs")
	cmd.Flags().StringSliceVar(&opts.Subdirs, "subdir", nil, "Subdirs to fetch (defaults to noarch)")
	cmd.Flags().StringVar(&opts.User, "user", "", "Username for basic auth (defaults to api)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "API key or password for basic auth")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Concurrent fetch workers (0 = default)")
	cmd.Flags().StringSliceVar(&opts.LocalDirs, "local-dir", nil, "Local channel directories with repodata.json")
	cmd.Flags().StringVar(&opts.PipIndex, "pip-index", "", "Pip simple index base URL")
	cmd.Flags().StringSliceVar(&opts.PipPackages, "pip-package", nil, "Pip package names to index (default: all)")
	cmd.Flags().IntVar(&opts.HTTPTimeoutSec, "http-timeout", 60, "HTTP timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&opts.HTTPRetries, "http-retries", 3, "HTTP retries (0 = default)")
	cmd.Flags().IntVar(&opts.HTTPRetryDelayMs, "http-retry-delay-ms", 200, "HTTP retry base delay in ms (0 = default)")

	_ = viper.BindPFlag("index_output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("endpoints", cmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("subdirs", cmd.Flags().Lookup("subdir"))
	_ = viper.BindPFlag("index_user", cmd.Flags().Lookup("user"))
	_ = viper.BindPFlag("index_api_key", cmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("index_workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("local_dirs", cmd.Flags().Lookup("local-dir"))
	_ = viper.BindPFlag("pip_index", cmd.Flags().Lookup("pip-index"))
	_ = viper.BindPFlag("pip_packages", cmd.Flags().Lookup("pip-package"))
	_ = viper.BindPFlag("http_timeout_sec", cmd.Flags().Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", cmd.Flags().Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", cmd.Flags().Lookup("http-retry-delay-ms"))
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	service := newAppService()
	result, err := service.Index(ctx, app.IndexRequest{
		Output:           resolveString(cmd, opts.Output, "index_output", "output"),
		Endpoints:        resolveStrings(cmd, opts.Endpoints, "endpoints", "endpoint"),
		Subdirs:          resolveStrings(cmd, opts.Subdirs, "subdirs", "subdir"),
		User:             resolveString(cmd, opts.User, "index_user", "user"),
		APIKey:           resolveString(cmd, opts.APIKey, "index_api_key", "api-key"),
		Workers:          resolveInt(cmd, opts.Workers, "index_workers", "workers"),
		LocalDirs:        resolveStrings(cmd, opts.LocalDirs, "local_dirs", "local-dir"),
		PipIndex:         resolveString(cmd, opts.PipIndex, "pip_index", "pip-index"),
		PipPackages:      resolveStrings(cmd, opts.PipPackages, "pip_packages", "pip-package"),
		HTTPTimeoutSec:   resolveInt(cmd, opts.HTTPTimeoutSec, "http_timeout_sec", "http-timeout"),
		HTTPRetries:      resolveInt(cmd, opts.HTTPRetries, "http_retries", "http-retries"),
		HTTPRetryDelayMs: resolveInt(cmd, opts.HTTPRetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("wrote channel index: %s\n", result.OutputPath)
	return nil
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}
