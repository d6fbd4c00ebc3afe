package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feedstock/internal/app"
)

type testOptions struct {
	Recipe      string
	Variants    []string
	OutputDir   string
	Artifact    string
	SourceDir   string
	RunCommands bool
}

func newTestCommand() *cobra.Command {
	opts := testOptions{}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check a built artifact against the recipe's test section",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Recipe, "recipe", "", "Recipe file path")
	cmd.Flags().StringSliceVar(&opts.Variants, "variant", nil, "Variant file paths")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory containing build.manifest")
	cmd.Flags().StringVar(&opts.Artifact, "artifact", "", "Artifact path (overrides build.manifest)")
	cmd.Flags().StringVar(&opts.SourceDir, "source-dir", "", "Directory the test commands run in")
	cmd.Flags().BoolVar(&opts.RunCommands, "run-commands", false, "Run the recipe's test commands")

	_ = viper.BindPFlag("recipe", cmd.Flags().Lookup("recipe"))
	_ = viper.BindPFlag("variants", cmd.Flags().Lookup("variant"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("artifact", cmd.Flags().Lookup("artifact"))
	_ = viper.BindPFlag("source_dir", cmd.Flags().Lookup("source-dir"))
	_ = viper.BindPFlag("run_commands", cmd.Flags().Lookup("run-commands"))
	return cmd
}

func runTest(ctx context.Context, cmd *cobra.Command, opts testOptions) error {
	service := newAppService()
	result, err := service.Test(ctx, app.TestRequest{
		RecipePath:   resolveString(cmd, opts.Recipe, "recipe", "recipe"),
		Variants:     resolveStrings(cmd, opts.Variants, "variants", "variant"),
		OutputDir:    resolveString(cmd, opts.OutputDir, "output", "output"),
		ArtifactPath: resolveString(cmd, opts.Artifact, "artifact", "artifact"),
		SourceDir:    resolveString(cmd, opts.SourceDir, "source_dir", "source-dir"),
		RunCommands:  resolveBool(cmd, opts.RunCommands, "run_commands", "run-commands"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("tested: %s (%d checks passed)\n", result.PackageName, result.Passed)
	return nil
}
