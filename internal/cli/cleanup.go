package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/vtejapy/new-cft2/internal/config"
	"github.com/vtejapy/new-cft2/internal/stack"
)

// newCleanupCommand creates the "cleanup" subcommand that tears down the
// stack for an environment after explicit confirmation.
func newCleanupCommand(opts *Options) *cobra.Command {
	var assumeYes bool
	var forceDeleteData bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the deployed stack for an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, environ, err := resolveTarget(opts)
			if err != nil {
				return err
			}

			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(environ.Region))
			if err != nil {
				return fmt.Errorf("load AWS configuration: %w", err)
			}
			deployer := stack.NewDeployerFromConfig(awsCfg, logger)

			return runCleanup(cmd.Context(), logger, cfg, environ, deployer, assumeYes, forceDeleteData)
		},
	}

	addTargetFlags(cmd, opts)
	cmd.Flags().BoolVar(&assumeYes, "yes", false, "Skip the interactive confirmation prompt")
	cmd.Flags().BoolVar(&forceDeleteData, "force-delete-data", false, "Acknowledge irreversible deletion of durable data stores")

	return cmd
}

// runCleanup enforces both destructive-action gates, then deletes the stack
// and polls to a terminal state. The two gates are checked and logged
// independently so each acknowledgment is auditable.
func runCleanup(ctx context.Context, logger *slog.Logger, cfg *config.StackConfig, environ *config.Environment, deployer *stack.Deployer, assumeYes, forceDeleteData bool) error {
	// Durable-store gate first: it fails fast without touching the control
	// plane and is independent of the general confirmation.
	if err := stack.CheckDurableAcknowledged(environ.StackName, cfg.DurableComponents(), forceDeleteData); err != nil {
		return err
	}
	if forceDeleteData {
		logger.Warn("durable-store deletion acknowledged", "stack", environ.StackName, "components", cfg.DurableComponents())
	}

	if !assumeYes {
		ok, err := confirm(os.Stdin, os.Stderr, fmt.Sprintf("Delete stack %q in %s (%s)? This cannot be undone", environ.StackName, environ.Name, environ.Region))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("cleanup declined by operator", "stack", environ.StackName)
			return fmt.Errorf("cleanup of stack %q not confirmed", environ.StackName)
		}
	}
	logger.Info("teardown confirmed", "stack", environ.StackName, "environment", environ.Name)

	if _, err := deployer.Teardown(ctx, environ.StackName); err != nil {
		return err
	}
	return nil
}
