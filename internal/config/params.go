package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParameterFileError indicates a missing or malformed per-environment
// parameter file.
type ParameterFileError struct {
	// Path is the parameter file that failed to load.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *ParameterFileError) Error() string {
	if e == nil {
		return "parameter file error"
	}
	return fmt.Sprintf("parameter file %q: %v", e.Path, e.Err)
}

func (e *ParameterFileError) Unwrap() error {
	return e.Err
}

// IsParameterFileError reports whether err is a ParameterFileError.
func IsParameterFileError(err error) bool {
	var target *ParameterFileError
	return errors.As(err, &target)
}

// TemplatesBucketKey is the parameter naming the bucket that receives
// validated templates. Every parameter file must define it.
const TemplatesBucketKey = "TemplatesBucket"

// CodeBucketKey is the parameter naming the bucket that receives code
// payloads. Required only when the manifest declares a code directory.
const CodeBucketKey = "LambdaCodeBucket"

// Parameters is an ordered key/value mapping. Order is preserved from the
// parameter file so diagnostics and deployment requests are deterministic.
type Parameters struct {
	keys   []string
	values map[string]string
}

// UnmarshalYAML decodes a YAML/JSON mapping node preserving key order.
// Scalar values of any type are kept in their literal text form.
func (p *Parameters) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("Parameters must be a mapping, got %s", nodeKind(node.Kind))
	}
	p.values = make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if valNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("parameter %q must be a scalar value", keyNode.Value)
		}
		if _, dup := p.values[keyNode.Value]; dup {
			return fmt.Errorf("duplicate parameter key %q", keyNode.Value)
		}
		p.keys = append(p.keys, keyNode.Value)
		p.values[keyNode.Value] = valNode.Value
	}
	return nil
}

// Keys returns parameter names in file order.
func (p *Parameters) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Get returns the value for key and whether it is present.
func (p *Parameters) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Set adds or replaces a value, preserving existing order for known keys and
// appending new keys at the end.
func (p *Parameters) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Len returns the number of parameters.
func (p *Parameters) Len() int {
	return len(p.keys)
}

// ParameterSet is the per-environment parameter file model. Secret-marked
// keys carry no value on disk; their values are acquired by the secret broker
// at deploy time.
type ParameterSet struct {
	// Parameters holds the non-secret configuration values.
	Parameters Parameters `yaml:"Parameters"`
	// Secrets lists parameter names whose values must be brokered, never read
	// from disk.
	Secrets []string `yaml:"Secrets,omitempty"`
}

// LoadParameterSet reads and validates the parameter file at path.
// A missing file, malformed structure, absent Parameters object, or a secret
// key present on disk all yield a ParameterFileError.
func LoadParameterSet(path string) (*ParameterSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParameterFileError{Path: path, Err: err}
	}

	// Distinguish "Parameters missing" from "Parameters present but empty".
	var probe struct {
		Parameters *yaml.Node `yaml:"Parameters"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return nil, &ParameterFileError{Path: path, Err: err}
	}
	if probe.Parameters == nil {
		return nil, &ParameterFileError{Path: path, Err: errors.New("missing required Parameters object")}
	}

	var set ParameterSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, &ParameterFileError{Path: path, Err: err}
	}

	if _, ok := set.Parameters.Get(TemplatesBucketKey); !ok {
		return nil, &ParameterFileError{
			Path: path,
			Err:  fmt.Errorf("missing required parameter %q", TemplatesBucketKey),
		}
	}
	for _, name := range set.Secrets {
		if _, onDisk := set.Parameters.Get(name); onDisk {
			return nil, &ParameterFileError{
				Path: path,
				Err:  fmt.Errorf("secret parameter %q must not have a value on disk", name),
			}
		}
	}

	return &set, nil
}

// nodeKind renders a yaml.Kind for error messages.
func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
