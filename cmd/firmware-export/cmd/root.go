package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rapidia/firmware-export/internal/logger"
	"github.com/rapidia/firmware-export/internal/service/export"
	"github.com/rapidia/firmware-export/internal/version"
)

var (
	// options collects flag values for the export run.
	options = new(export.Options)

	// logLevel is the minimum level written to stderr.
	logLevel string

	// rootCmd represents the post-build export hook.
	rootCmd = &cobra.Command{
		Use:   "firmware-export",
		Short: "Publish a built firmware image into the host application",
		Long: "Copies the firmware artifact into the host application checkout, stamps its " +
			"package manifest with the firmware version and optionally commits and pushes. " +
			"The host checkout must be clean; the run aborts on the first failure.",
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err := export.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the firmware-export CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newInitCommand())

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

// applyLogLevel sets the global log level from the --log-level flag.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	flags.StringVarP(&options.ConfigPath, "config", "c", "", "path to settings file (default firmware-export.yaml when present)")
	flags.StringVar(&options.FirmwareRoot, "firmware-root", "", "firmware checkout root")
	flags.StringVar(&options.Destination, "destination", "", "host application checkout, relative to the firmware root")
	flags.StringVar(&options.BuildDir, "build-dir", "", "build output directory, relative to the firmware root")
	flags.StringVar(&options.Artifact, "artifact", "", "artifact name without extension")
	flags.StringVar(&options.Extension, "extension", "", "artifact extension, e.g. .elf or .hex")
	flags.StringVar(&options.Header, "header", "", "version header, relative to the firmware root")
	flags.StringVar(&options.Branch, "branch", "", "destination branch to check out and push")
	flags.BoolVar(&options.Publish, "publish", false, "commit and push the destination after updating it")
	flags.BoolVar(&options.SkipSync, "skip-sync", false, "do not check out or pull the destination")
	flags.BoolVar(&options.DryRun, "dry-run", false, "validate and report without modifying anything")
}
