package cli

import (
	envparse "github.com/caarlos0/env/v11"

	"github.com/vtejapy/new-cft2/internal/logging"
)

// baseEnv defines root CLI defaults sourced from CFTCTL_* env vars.
type baseEnv struct {
	// ConfigPath is the stack.yaml path from CFTCTL_CONFIG.
	ConfigPath string `env:"CFTCTL_CONFIG"`
	// Env is the environment name from CFTCTL_ENV.
	Env string `env:"CFTCTL_ENV"`
	// Region is the control-plane region from CFTCTL_REGION.
	Region string `env:"CFTCTL_REGION"`
	// StackName is the stack name override from CFTCTL_STACK_NAME.
	StackName string `env:"CFTCTL_STACK_NAME"`
	// LogLevel is the logging level from CFTCTL_LOG_LEVEL.
	LogLevel string `env:"CFTCTL_LOG_LEVEL"`
}

// applyEnvDefaults fills unset root options from CFTCTL_* env vars so
// automated invocations can omit the flags.
func applyEnvDefaults(opts *Options) {
	var vars baseEnv
	if err := envparse.Parse(&vars); err != nil {
		return
	}
	if vars.ConfigPath != "" {
		opts.ConfigPath = vars.ConfigPath
	}
	if vars.Env != "" {
		opts.Env = vars.Env
	}
	if vars.Region != "" {
		opts.Region = vars.Region
	}
	if vars.StackName != "" {
		opts.StackName = vars.StackName
	}
	if vars.LogLevel != "" {
		opts.LogLevel = logging.ParseLevel(vars.LogLevel)
	}
}
