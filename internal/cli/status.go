package cli

import (
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/vtejapy/new-cft2/internal/stack"
)

// newStatusCommand creates the "status" subcommand that prints the current
// stack state and, when complete, its outputs. Pure read, no mutation.
func newStatusCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current stack state and outputs for an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			_, environ, err := resolveTarget(opts)
			if err != nil {
				return err
			}

			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(environ.Region))
			if err != nil {
				return fmt.Errorf("load AWS configuration: %w", err)
			}
			deployer := stack.NewDeployerFromConfig(awsCfg, logger)

			_, state, err := deployer.Describe(cmd.Context(), environ.StackName)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Stack %s: %s\n", environ.StackName, state)

			if state != stack.StateComplete {
				return nil
			}
			outputs, err := deployer.Outputs(cmd.Context(), environ.StackName)
			if err != nil {
				logger.Warn("outputs could not be read", "stack", environ.StackName, "error", err)
				return &softWarning{err: err}
			}
			return stack.RenderOutputs(os.Stdout, environ.StackName, outputs)
		},
	}

	addTargetFlags(cmd, opts)
	return cmd
}
