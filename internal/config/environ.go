package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnvironmentNames is the fixed enumeration of deployable environments.
var EnvironmentNames = []string{"dev", "staging", "prod"}

// knownRegions is the control plane's region list. Validation happens before
// any network call, so the list is compiled in rather than fetched.
var knownRegions = map[string]struct{}{
	"us-east-1":      {},
	"us-east-2":      {},
	"us-west-1":      {},
	"us-west-2":      {},
	"af-south-1":     {},
	"ap-east-1":      {},
	"ap-south-1":     {},
	"ap-south-2":     {},
	"ap-northeast-1": {},
	"ap-northeast-2": {},
	"ap-northeast-3": {},
	"ap-southeast-1": {},
	"ap-southeast-2": {},
	"ap-southeast-3": {},
	"ap-southeast-4": {},
	"ca-central-1":   {},
	"ca-west-1":      {},
	"eu-central-1":   {},
	"eu-central-2":   {},
	"eu-west-1":      {},
	"eu-west-2":      {},
	"eu-west-3":      {},
	"eu-north-1":     {},
	"eu-south-1":     {},
	"eu-south-2":     {},
	"il-central-1":   {},
	"me-central-1":   {},
	"me-south-1":     {},
	"sa-east-1":      {},
}

// InvalidInputError indicates that an environment name, region, or other
// invocation argument failed validation before any side effect occurred.
type InvalidInputError struct {
	// Field names the rejected input (e.g. "environment", "region").
	Field string
	// Value is the rejected input value.
	Value string
	// Reason explains why the value was rejected.
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e == nil {
		return "invalid input"
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsInvalidInputError reports whether err is an InvalidInputError.
func IsInvalidInputError(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// Environment is the immutable per-invocation context produced by
// ResolveEnvironment and passed to every subsequent component call.
type Environment struct {
	// Name is the validated environment name (dev, staging, prod).
	Name string
	// Region is the validated control-plane region.
	Region string
	// Project is the project name carried over from the manifest.
	Project string
	// StackName is the resolved stack name ("<project>-<environment>" unless
	// overridden).
	StackName string
	// ParameterFile is the path of the environment's parameter file.
	ParameterFile string
}

// ResolveEnvironment validates the environment name and region against the
// fixed enumerations, derives the stack name, and locates the parameter file.
// It performs reads only and fails with InvalidInputError before any network
// or storage call.
func ResolveEnvironment(cfg *StackConfig, name, region, stackOverride string) (*Environment, error) {
	if !validEnvironmentName(name) {
		return nil, &InvalidInputError{
			Field:  "environment",
			Value:  name,
			Reason: fmt.Sprintf("must be one of %v", EnvironmentNames),
		}
	}
	if _, ok := knownRegions[region]; !ok {
		return nil, &InvalidInputError{
			Field:  "region",
			Value:  region,
			Reason: "not a known control-plane region",
		}
	}

	stackName := stackOverride
	if stackName == "" {
		stackName = fmt.Sprintf("%s-%s", cfg.Project, name)
	}

	return &Environment{
		Name:          name,
		Region:        region,
		Project:       cfg.Project,
		StackName:     stackName,
		ParameterFile: locateParameterFile(cfg, name),
	}, nil
}

// validEnvironmentName reports whether name is in the fixed enumeration.
func validEnvironmentName(name string) bool {
	for _, n := range EnvironmentNames {
		if n == name {
			return true
		}
	}
	return false
}

// locateParameterFile returns the parameter file path for an environment,
// preferring <env>.yaml over <env>.json when both exist. The file's presence
// is not required here; LoadParameterSet reports a ParameterFileError when it
// is missing.
func locateParameterFile(cfg *StackConfig, envName string) string {
	dir := filepath.Join(cfg.baseDir, cfg.ParameterDir)
	candidates := []string{
		filepath.Join(dir, envName+".yaml"),
		filepath.Join(dir, envName+".yml"),
		filepath.Join(dir, envName+".json"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return candidates[0]
}

// KnownRegions returns the compiled-in region list in sorted order, for help
// text and diagnostics.
func KnownRegions() []string {
	out := make([]string, 0, len(knownRegions))
	for r := range knownRegions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
