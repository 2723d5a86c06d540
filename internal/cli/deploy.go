package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/vtejapy/new-cft2/internal/artifact"
	"github.com/vtejapy/new-cft2/internal/config"
	"github.com/vtejapy/new-cft2/internal/env"
	"github.com/vtejapy/new-cft2/internal/secret"
	"github.com/vtejapy/new-cft2/internal/stack"
	"github.com/vtejapy/new-cft2/internal/store"
	"github.com/vtejapy/new-cft2/internal/template"
)

// Destination prefixes inside the artifact buckets. The buckets are named by
// the per-environment parameter file, so prefixes can stay fixed.
const (
	templatesPrefix = "templates"
	codePrefix      = "code"
)

// deployDeps carries the external collaborators of one deploy invocation so
// tests can substitute mock clients.
type deployDeps struct {
	store    *store.Client
	deployer *stack.Deployer
	secrets  secret.Provider
	out      io.Writer
}

// newDeployCommand creates the "deploy" subcommand that validates, publishes,
// and deploys the composed stack for one environment.
func newDeployCommand(opts *Options) *cobra.Command {
	var dryRun bool
	var secretSource string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Validate, publish, and deploy the stack for an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			inlineVars, err := env.ParseInlineVars(cmd.Flag("vars").Value.String())
			if err != nil {
				return err
			}

			cfg, environ, err := resolveTarget(opts)
			if err != nil {
				return err
			}

			deps, err := buildDeployDeps(cmd.Context(), logger, environ, secretSource)
			if err != nil {
				return err
			}

			return runDeploy(cmd.Context(), logger, cfg, environ, inlineVars, dryRun, deps)
		},
	}

	addTargetFlags(cmd, opts)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve, validate, and compute the publish plan without uploading or submitting")
	cmd.Flags().StringVar(&secretSource, "secret-source", "terminal", "Secret provider: terminal or vault")
	cmd.Flags().String("vars", "", "Non-secret parameter overrides in k=v,k2=v2 format")

	return cmd
}

// resolveTarget loads the manifest and resolves the immutable environment
// context shared by deploy, cleanup, and status.
func resolveTarget(opts *Options) (*config.StackConfig, *config.Environment, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	environ, err := config.ResolveEnvironment(cfg, opts.Env, opts.Region, opts.StackName)
	if err != nil {
		return nil, nil, err
	}
	return cfg, environ, nil
}

// buildDeployDeps wires the real AWS clients for one invocation.
func buildDeployDeps(ctx context.Context, logger *slog.Logger, environ *config.Environment, secretSource string) (deployDeps, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(environ.Region))
	if err != nil {
		return deployDeps{}, fmt.Errorf("load AWS configuration: %w", err)
	}

	var provider secret.Provider
	switch secretSource {
	case "terminal":
		provider = secret.NewTerminalProvider()
	case "vault":
		provider = secret.NewVaultProviderFromConfig(awsCfg, environ.Project+"/"+environ.Name)
	default:
		return deployDeps{}, &config.InvalidInputError{
			Field:  "secret-source",
			Value:  secretSource,
			Reason: "must be terminal or vault",
		}
	}

	return deployDeps{
		store:    store.NewFromConfig(awsCfg, logger),
		deployer: stack.NewDeployerFromConfig(awsCfg, logger),
		secrets:  provider,
		out:      os.Stdout,
	}, nil
}

// runDeploy executes the deployment pipeline: validate every artifact,
// mirror-sync templates and code payloads, broker secrets, submit the
// deployment request, poll to a terminal state, and report outputs.
func runDeploy(ctx context.Context, logger *slog.Logger, cfg *config.StackConfig, environ *config.Environment, overrides env.Vars, dryRun bool, deps deployDeps) error {
	set, err := config.LoadParameterSet(environ.ParameterFile)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, set, overrides); err != nil {
		return err
	}

	summary := template.NewValidator(cfg, logger).ValidateAll()
	reportValidation(logger, summary)
	if err := summary.Err(); err != nil {
		return err
	}

	templatesBucket, _ := set.Parameters.Get(config.TemplatesBucketKey)
	publisher := artifact.NewPublisher(deps.store, logger)
	templateDir := cfg.TemplatePath("")
	if _, err := publisher.PublishDir(ctx, templateDir, templatesBucket, templatesPrefix, dryRun); err != nil {
		return err
	}

	if codeDir := cfg.CodePath(); codeDir == "" || !artifact.DirExists(codeDir) {
		// Components without deployable code are valid.
		logger.Warn("code payload source absent; skipping code publish", "dir", codeDir)
	} else {
		codeBucket, ok := set.Parameters.Get(config.CodeBucketKey)
		if !ok {
			return &config.ParameterFileError{
				Path: environ.ParameterFile,
				Err:  fmt.Errorf("missing required parameter %q for code payloads in %q", config.CodeBucketKey, codeDir),
			}
		}
		if _, err := publisher.PublishDir(ctx, codeDir, codeBucket, codePrefix, dryRun); err != nil {
			return err
		}
	}

	if dryRun {
		logger.Info("dry run complete; nothing was uploaded or submitted", "stack", environ.StackName)
		return nil
	}

	secrets, err := secret.NewBroker(deps.secrets, logger).Resolve(ctx, set.Secrets)
	if err != nil {
		return err
	}

	templateURL := stack.TemplateURL(templatesBucket, environ.Region, templatesPrefix+"/"+cfg.Composition)
	req, err := stack.BuildRequest(environ, set, secrets, templateURL)
	if err != nil {
		return err
	}

	if _, err := deps.deployer.Deploy(ctx, req); err != nil {
		return err
	}

	outputs, err := deps.deployer.Outputs(ctx, environ.StackName)
	if err != nil {
		// The deployment itself succeeded; a transient read failure here must
		// not be conflated with deployment failure.
		logger.Warn("stack deployed but outputs could not be read", "stack", environ.StackName, "error", err)
		return &softWarning{err: err}
	}
	return stack.RenderOutputs(deps.out, environ.StackName, outputs)
}

// applyOverrides merges inline parameter overrides and manifest envFiles into
// the non-secret parameter set. Secret-marked keys are rejected so secret
// values cannot bypass the broker.
func applyOverrides(cfg *config.StackConfig, set *config.ParameterSet, inline env.Vars) error {
	fileVars, err := env.LoadEnvFiles(cfg.BaseDir(), cfg.EnvFiles)
	if err != nil {
		return err
	}
	merged := env.Merge(fileVars, inline)
	secretKeys := make(map[string]struct{}, len(set.Secrets))
	for _, k := range set.Secrets {
		secretKeys[k] = struct{}{}
	}
	for key, value := range merged {
		if _, isSecret := secretKeys[key]; isSecret {
			return fmt.Errorf("parameter %q is secret-marked and can only be supplied through the secret broker", key)
		}
		if _, known := set.Parameters.Get(key); known {
			set.Parameters.Set(key, value)
		}
	}
	return nil
}

// reportValidation logs every diagnostic with its artifact identifier.
func reportValidation(logger *slog.Logger, summary *template.Summary) {
	for _, res := range summary.Results {
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case template.SeverityError:
				logger.Error("validation error", "artifact", res.Artifact, "path", res.Path, "detail", d.Message)
			default:
				logger.Warn("validation warning", "artifact", res.Artifact, "path", res.Path, "detail", d.Message)
			}
		}
	}
	logger.Info("validation summary", "errors", summary.Errors, "warnings", summary.Warnings)
}

// softWarning wraps a post-deployment read failure that should exit with the
// informational code instead of a hard failure.
type softWarning struct {
	err error
}

func (w *softWarning) Error() string {
	return w.err.Error()
}

func (w *softWarning) Unwrap() error {
	return w.err
}

// ExitCode maps an Execute error to the process exit code: 0 for success,
// 2 for the outputs-unavailable soft warning, 1 for every other failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var soft *softWarning
	if errors.As(err, &soft) {
		return 2
	}
	return 1
}
