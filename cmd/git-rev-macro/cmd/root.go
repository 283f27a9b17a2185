package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rapidia/firmware-export/internal/logger"
	"github.com/rapidia/firmware-export/internal/service/revmacro"
	"github.com/rapidia/firmware-export/internal/version"
)

var (
	// options collects flag values.
	options = new(revmacro.Options)

	// logLevel is the minimum level written to stderr.
	logLevel string

	// rootCmd prints the revision define.
	rootCmd = &cobra.Command{
		Use:   "git-rev-macro",
		Short: "Print the source revision as a compiler define",
		Long: "Prints -DRAPIDIA_SRC_REV=\"<commit>\" for the current HEAD. " +
			"Only the define goes to stdout, so the build system can read it as build flags.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.Output = cmd.OutOrStdout()

			return revmacro.Run(ctx, options)
		},
	}
)

// Execute runs the git-rev-macro CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.Flags().StringVar(&options.RepoPath, "repo", "", "firmware checkout (default current directory)")
	rootCmd.Flags().StringVar(&options.Define, "define", revmacro.DefaultDefine, "macro receiving the revision")
	rootCmd.Flags().StringVar(&options.Binary, "git", "git", "git executable")
}
