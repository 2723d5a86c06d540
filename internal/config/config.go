// Package config contains the loader and strongly typed model for stack.yaml,
// the environment resolver, and per-environment parameter files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultComposition is the default top-level composition template name.
	DefaultComposition = "main.yaml"
	// DefaultTemplateDir is the default directory holding component templates.
	DefaultTemplateDir = "templates"
	// DefaultParameterDir is the default directory holding per-environment parameter files.
	DefaultParameterDir = "params"
)

// StackConfig represents the declarative description of a deployable stack.
// It mirrors the structure of stack.yaml.
type StackConfig struct {
	// Project is the short project name used in stack names and tags.
	Project string `yaml:"project"`
	// EnvFiles lists .env files loaded before resolving parameter overrides.
	EnvFiles []string `yaml:"envFiles,omitempty"`
	// Composition is the top-level template that composes all components,
	// relative to TemplateDir.
	Composition string `yaml:"composition,omitempty"`
	// TemplateDir is the directory containing all templates, relative to the
	// manifest location.
	TemplateDir string `yaml:"templateDir,omitempty"`
	// CodeDir is the directory containing deployable code payloads. It is
	// optional; components without code payloads are valid.
	CodeDir string `yaml:"codeDir,omitempty"`
	// ParameterDir is the directory containing per-environment parameter files.
	ParameterDir string `yaml:"parameterDir,omitempty"`
	// Components lists the infrastructure components composed by the stack.
	Components []Component `yaml:"components"`

	// baseDir is the directory containing the manifest, used to resolve
	// relative paths.
	baseDir string
}

// Component describes a single named infrastructure component and its
// upstream dependencies. Components form a DAG; cycles are rejected by the
// template validator.
type Component struct {
	// Name is the logical component name referenced by the composition.
	Name string `yaml:"name"`
	// Template is the component template file, relative to TemplateDir.
	Template string `yaml:"template"`
	// DependsOn lists names of components that must exist before this one.
	DependsOn []string `yaml:"dependsOn,omitempty"`
	// Durable marks components backed by durable stores (databases, retained
	// object storage). Tearing them down requires an explicit force
	// acknowledgment in addition to the general confirmation.
	Durable bool `yaml:"durable,omitempty"`
}

// Load reads and validates a stack manifest from path.
func Load(path string) (*StackConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", absPath, err)
	}

	var cfg StackConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse manifest %q: %w", absPath, err)
	}

	if cfg.Project == "" {
		return nil, fmt.Errorf("manifest %q: project is required", absPath)
	}
	if cfg.Composition == "" {
		cfg.Composition = DefaultComposition
	}
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = DefaultTemplateDir
	}
	if cfg.ParameterDir == "" {
		cfg.ParameterDir = DefaultParameterDir
	}

	seen := make(map[string]struct{}, len(cfg.Components))
	for i, comp := range cfg.Components {
		if comp.Name == "" {
			return nil, fmt.Errorf("manifest %q: components[%d] is missing a name", absPath, i)
		}
		if comp.Template == "" {
			return nil, fmt.Errorf("manifest %q: component %q is missing a template", absPath, comp.Name)
		}
		if _, dup := seen[comp.Name]; dup {
			return nil, fmt.Errorf("manifest %q: duplicate component name %q", absPath, comp.Name)
		}
		seen[comp.Name] = struct{}{}
	}

	cfg.baseDir = filepath.Dir(absPath)
	return &cfg, nil
}

// BaseDir returns the directory containing the loaded manifest.
func (c *StackConfig) BaseDir() string {
	return c.baseDir
}

// TemplatePath returns the absolute path of a template file named relative to TemplateDir.
func (c *StackConfig) TemplatePath(name string) string {
	return filepath.Join(c.baseDir, c.TemplateDir, name)
}

// CodePath returns the absolute path of the code payload directory, or ""
// when the manifest declares none.
func (c *StackConfig) CodePath() string {
	if c.CodeDir == "" {
		return ""
	}
	return filepath.Join(c.baseDir, c.CodeDir)
}

// DurableComponents returns the names of components marked durable.
func (c *StackConfig) DurableComponents() []string {
	var out []string
	for _, comp := range c.Components {
		if comp.Durable {
			out = append(out, comp.Name)
		}
	}
	return out
}

// ComponentByName returns the component with the given name, if declared.
func (c *StackConfig) ComponentByName(name string) (Component, bool) {
	for _, comp := range c.Components {
		if comp.Name == name {
			return comp, true
		}
	}
	return Component{}, false
}
