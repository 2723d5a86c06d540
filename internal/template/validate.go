// Package template implements structural and policy validation of stack
// artifacts before they are published to the control plane.
package template

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vtejapy/new-cft2/internal/config"
)

// nestedStackType is the resource type that references a component template
// from the composition.
const nestedStackType = "AWS::CloudFormation::Stack"

// Severity classifies a validation diagnostic.
type Severity string

const (
	// SeverityError blocks publishing of the artifact.
	SeverityError Severity = "error"
	// SeverityWarning is reported but does not block publishing.
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single validation finding for an artifact.
type Diagnostic struct {
	// Severity is error or warning.
	Severity Severity
	// Message is the human-readable finding.
	Message string
}

// ValidationResult holds the ordered diagnostics produced for one artifact.
type ValidationResult struct {
	// Artifact is the logical artifact name (component name or "composition").
	Artifact string
	// Path is the artifact's source file.
	Path string
	// Diagnostics lists findings in the order they were produced.
	Diagnostics []Diagnostic
}

// Passed reports whether the artifact produced no error-severity diagnostics.
func (r *ValidationResult) Passed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Summary aggregates validation results across one run.
type Summary struct {
	// Results holds one entry per validated artifact, in validation order.
	Results []ValidationResult
	// Errors is the total error count across all artifacts.
	Errors int
	// Warnings is the total warning count across all artifacts.
	Warnings int
}

// Passed reports whether no artifact produced an error.
func (s *Summary) Passed() bool {
	return s.Errors == 0
}

// Failed returns the names of artifacts that did not pass.
func (s *Summary) Failed() []string {
	var out []string
	for i := range s.Results {
		if !s.Results[i].Passed() {
			out = append(out, s.Results[i].Artifact)
		}
	}
	return out
}

// ValidationError indicates that one or more artifacts failed validation and
// publishing must not proceed.
type ValidationError struct {
	// Errors is the total error count.
	Errors int
	// Artifacts names the artifacts that failed.
	Artifacts []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed with %d error(s) in artifacts %v", e.Errors, e.Artifacts)
}

// Err converts a failing summary into a ValidationError, or nil when the
// summary passed.
func (s *Summary) Err() error {
	if s.Passed() {
		return nil
	}
	return &ValidationError{Errors: s.Errors, Artifacts: s.Failed()}
}

// Validator runs structural and policy checks over every artifact of a stack.
type Validator struct {
	cfg    *config.StackConfig
	logger *slog.Logger
}

// NewValidator constructs a Validator for the given manifest.
func NewValidator(cfg *config.StackConfig, logger *slog.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logger}
}

// ValidateAll validates the composition template, every component template,
// and the declared dependency graph, aggregating all diagnostics. It never
// stops at the first failure so the full report is available in one run.
func (v *Validator) ValidateAll() *Summary {
	summary := &Summary{}

	composition := v.validateFile("composition", v.cfg.TemplatePath(v.cfg.Composition))
	compDoc := composition.doc

	// Cross-artifact references: every nested stack in the composition must
	// resolve to a component declared in the manifest.
	if compDoc != nil {
		for _, ref := range nestedStackRefs(compDoc) {
			if _, ok := v.cfg.ComponentByName(ref); !ok {
				composition.result.Diagnostics = append(composition.result.Diagnostics,
					errorf("nested stack %q does not resolve to any declared component", ref))
			}
		}
	}

	// Dependency graph sanity: unknown dependencies and cycles block the run.
	if g, err := NewGraph(v.cfg.Components); err != nil {
		composition.result.Diagnostics = append(composition.result.Diagnostics,
			errorf("dependency graph: %v", err))
	} else if _, err := g.TopoSort(); err != nil {
		composition.result.Diagnostics = append(composition.result.Diagnostics,
			errorf("dependency graph: %v", err))
	}

	summary.add(composition.result)
	for _, comp := range v.cfg.Components {
		res := v.validateFile(comp.Name, v.cfg.TemplatePath(comp.Template))
		summary.add(res.result)
	}

	v.logger.Info("validation finished",
		"artifacts", len(summary.Results),
		"errors", summary.Errors,
		"warnings", summary.Warnings)
	return summary
}

// fileResult pairs a ValidationResult with the parsed document for follow-up
// cross-artifact checks.
type fileResult struct {
	result ValidationResult
	doc    *yaml.Node
}

// validateFile runs the structural and lint checks for a single template file.
func (v *Validator) validateFile(artifact, path string) fileResult {
	res := ValidationResult{Artifact: artifact, Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, errorf("read template: %v", err))
		return fileResult{result: res}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		res.Diagnostics = append(res.Diagnostics, errorf("not well-formed: %v", err))
		return fileResult{result: res}
	}

	root := documentRoot(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		res.Diagnostics = append(res.Diagnostics, errorf("template root must be a mapping"))
		return fileResult{result: res}
	}

	resources := mappingValue(root, "Resources")
	switch {
	case resources == nil:
		res.Diagnostics = append(res.Diagnostics, errorf("missing required Resources section"))
	case resources.Kind != yaml.MappingNode || len(resources.Content) == 0:
		res.Diagnostics = append(res.Diagnostics, errorf("Resources must be a non-empty mapping"))
	default:
		for i := 0; i+1 < len(resources.Content); i += 2 {
			logicalID := resources.Content[i].Value
			body := resources.Content[i+1]
			res.Diagnostics = append(res.Diagnostics, lintLogicalID(logicalID)...)
			if body.Kind != yaml.MappingNode {
				res.Diagnostics = append(res.Diagnostics, errorf("resource %q must be a mapping", logicalID))
				continue
			}
			typeNode := mappingValue(body, "Type")
			if typeNode == nil || typeNode.Kind != yaml.ScalarNode || typeNode.Value == "" {
				res.Diagnostics = append(res.Diagnostics, errorf("resource %q is missing a Type", logicalID))
			}
		}
	}

	res.Diagnostics = append(res.Diagnostics, lintBody(raw)...)
	return fileResult{result: res, doc: root}
}

// add appends a result and updates aggregate counts.
func (s *Summary) add(res ValidationResult) {
	s.Results = append(s.Results, res)
	for _, d := range res.Diagnostics {
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		}
	}
}

// nestedStackRefs returns the logical IDs of nested-stack resources in a
// parsed composition template.
func nestedStackRefs(root *yaml.Node) []string {
	resources := mappingValue(root, "Resources")
	if resources == nil || resources.Kind != yaml.MappingNode {
		return nil
	}
	var out []string
	for i := 0; i+1 < len(resources.Content); i += 2 {
		logicalID := resources.Content[i].Value
		body := resources.Content[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		typeNode := mappingValue(body, "Type")
		if typeNode != nil && typeNode.Value == nestedStackType {
			out = append(out, logicalID)
		}
	}
	return out
}

// documentRoot unwraps a yaml document node to its content mapping.
func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// mappingValue returns the value node for key inside a mapping node, or nil.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
