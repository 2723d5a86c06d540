package cli

import (
	"github.com/spf13/cobra"

	"github.com/vtejapy/new-cft2/internal/config"
	"github.com/vtejapy/new-cft2/internal/template"
)

// newValidateCommand creates the "validate" subcommand that checks every
// artifact without touching the control plane or the artifact store.
func newValidateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate all templates and the component dependency graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}

			summary := template.NewValidator(cfg, logger).ValidateAll()
			reportValidation(logger, summary)
			return summary.Err()
		},
	}
}
