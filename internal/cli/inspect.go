package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"feedstock/internal/app"
)

type inspectOptions struct {
	OutputDir string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect rendered outputs and lock membership",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory")
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	service := newAppService()
	result, err := service.Inspect(cmd.Context(), app.InspectRequest{
		OutputDir: resolveString(cmd, opts.OutputDir, "output", "output"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("render.lock entries: %d\n", result.LockCount)
	fmt.Println("lock sections:")
	for _, summary := range result.Sections {
		fmt.Printf("- %s: %d packages\n", summary.Section, summary.Count)
		if len(summary.Packages) > 0 {
			fmt.Printf("  %s\n", strings.Join(summary.Packages, ", "))
		}
	}
	fmt.Printf("pin.report records: %d\n", len(result.PinRecords))
	for _, record := range result.PinRecords {
		fmt.Printf("- %s %s %s (owner=%s)\n", record.Dependency, record.Action, record.Value, record.Owner)
	}
	return nil
}
