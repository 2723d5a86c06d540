// Package cli defines the command-line interface for cftctl.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vtejapy/new-cft2/internal/logging"
)

const (
	// defaultConfigPath is the default path to the stack manifest.
	defaultConfigPath = "stack.yaml"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	Env        string
	Region     string
	StackName  string
	LogLevel   logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(ctx context.Context, args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		ConfigPath: defaultConfigPath,
		LogLevel:   logging.LevelInfo,
	}
	applyEnvDefaults(rootOpts)

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cftctl",
		Short: "cftctl provisions and tears down a composed CloudFormation stack",
		Long:  "cftctl is a declarative tool for validating, publishing, and deploying a multi-component CloudFormation stack across dev, staging, and prod environments based on a stack.yaml definition.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "Path to stack.yaml manifest")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newDeployCommand(opts),
		newValidateCommand(opts),
		newCleanupCommand(opts),
		newStatusCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}

// addTargetFlags registers the environment/region/stack-name flags shared by
// commands that address one deployed stack.
func addTargetFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVar(&opts.Env, "env", opts.Env, "Environment name (dev, staging, prod)")
	cmd.Flags().StringVar(&opts.Region, "region", opts.Region, "Control-plane region")
	cmd.Flags().StringVar(&opts.StackName, "stack-name", opts.StackName, "Stack name override (default <project>-<env>)")
	if opts.Env == "" {
		_ = cmd.MarkFlagRequired("env")
	}
	if opts.Region == "" {
		_ = cmd.MarkFlagRequired("region")
	}
}
