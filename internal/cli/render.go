package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feedstock/internal/app"
)

type renderOptions struct {
	Recipe           string
	Variants         []string
	ChannelIndex     string
	OutputDir        string
	RequirementsFile string
	BuildID          string
	Solver           bool
}

func newRenderCommand() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Resolve requirements and produce lock outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.Context(), cmd, opts)
		},
	}
	addRenderFlags(cmd, &opts)
	return cmd
}

func addRenderFlags(cmd *cobra.Command, opts *renderOptions) {
	cmd.Flags().StringVar(&opts.Recipe, "recipe", "", "Recipe file path")
	cmd.Flags().StringSliceVar(&opts.Variants, "variant", nil, "Variant file paths")
	cmd.Flags().StringVar(&opts.ChannelIndex, "channel-index", "", "Channel index file")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory")
	cmd.Flags().StringVar(&opts.RequirementsFile, "requirements-file", "", "Pip requirements file joined into the test set")
	cmd.Flags().StringVar(&opts.BuildID, "build-id", "", "Build ID (optional override)")
	cmd.Flags().BoolVar(&opts.Solver, "solver", false, "Use the SAT solver for conda requirements")

	_ = viper.BindPFlag("recipe", cmd.Flags().Lookup("recipe"))
	_ = viper.BindPFlag("variants", cmd.Flags().Lookup("variant"))
	_ = viper.BindPFlag("channel_index", cmd.Flags().Lookup("channel-index"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("requirements_file", cmd.Flags().Lookup("requirements-file"))
	_ = viper.BindPFlag("build_id", cmd.Flags().Lookup("build-id"))
	_ = viper.BindPFlag("solver", cmd.Flags().Lookup("solver"))
}

func runRender(ctx context.Context, cmd *cobra.Command, opts renderOptions) error {
	service := newAppService()
	result, err := service.Render(ctx, app.RenderRequest{
		RecipePath:       resolveString(cmd, opts.Recipe, "recipe", "recipe"),
		Variants:         resolveStrings(cmd, opts.Variants, "variants", "variant"),
		ChannelIndex:     resolveString(cmd, opts.ChannelIndex, "channel_index", "channel-index"),
		OutputDir:        resolveString(cmd, opts.OutputDir, "output", "output"),
		RequirementsFile: resolveString(cmd, opts.RequirementsFile, "requirements_file", "requirements-file"),
		BuildID:          resolveString(cmd, opts.BuildID, "build_id", "build-id"),
		UseSolver:        resolveBool(cmd, opts.Solver, "solver", "solver"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("rendered: %s %s (%d locks)\n", result.PackageName, result.Version, result.LockCount)
	return nil
}
