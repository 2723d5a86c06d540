package template

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtejapy/new-cft2/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeStack lays out a manifest, composition, and component templates in a
// temp dir and returns the loaded config.
func writeStack(t *testing.T, manifest string, files map[string]string) *config.StackConfig {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stack.yaml"), []byte(manifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", name), []byte(content), 0o644))
	}
	cfg, err := config.Load(filepath.Join(dir, "stack.yaml"))
	require.NoError(t, err)
	return cfg
}

const validComponent = `
Resources:
  Thing:
    Type: AWS::SNS::Topic
`

func TestValidateAll(t *testing.T) {
	manifest := `
project: p
components:
  - name: network
    template: network.yaml
  - name: compute
    template: compute.yaml
    dependsOn: [network]
`

	t.Run("well-formed stack passes with zero errors", func(t *testing.T) {
		cfg := writeStack(t, manifest, map[string]string{
			"main.yaml": `
Resources:
  network:
    Type: AWS::CloudFormation::Stack
    Properties:
      TemplateURL: !Sub "${TemplatesBucketURL}/network.yaml"
  compute:
    Type: AWS::CloudFormation::Stack
    Properties:
      TemplateURL: !Sub "${TemplatesBucketURL}/compute.yaml"
`,
			"network.yaml": validComponent,
			"compute.yaml": validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.Equal(t, 0, summary.Errors)
		assert.True(t, summary.Passed())
		assert.NoError(t, summary.Err())
		require.Len(t, summary.Results, 3)
		for _, res := range summary.Results {
			assert.True(t, res.Passed(), "artifact %s", res.Artifact)
		}
	})

	t.Run("malformed component fails with diagnostics", func(t *testing.T) {
		cfg := writeStack(t, manifest, map[string]string{
			"main.yaml":    validComponent,
			"network.yaml": "Resources: [unclosed",
			"compute.yaml": validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.False(t, summary.Passed())
		require.Error(t, summary.Err())

		var vErr *ValidationError
		require.ErrorAs(t, summary.Err(), &vErr)
		assert.Contains(t, vErr.Artifacts, "network")

		for _, res := range summary.Results {
			if res.Artifact == "network" {
				assert.False(t, res.Passed())
				assert.NotEmpty(t, res.Diagnostics)
			}
		}
	})

	t.Run("missing Resources section is an error", func(t *testing.T) {
		cfg := writeStack(t, manifest, map[string]string{
			"main.yaml":    validComponent,
			"network.yaml": "Description: no resources here\n",
			"compute.yaml": validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.False(t, summary.Passed())
	})

	t.Run("resource without Type is an error", func(t *testing.T) {
		cfg := writeStack(t, manifest, map[string]string{
			"main.yaml":    validComponent,
			"network.yaml": "Resources:\n  Vpc:\n    Properties: {}\n",
			"compute.yaml": validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.False(t, summary.Passed())
	})

	t.Run("unresolved nested stack reference is an error", func(t *testing.T) {
		cfg := writeStack(t, manifest, map[string]string{
			"main.yaml": `
Resources:
  storage:
    Type: AWS::CloudFormation::Stack
`,
			"network.yaml": validComponent,
			"compute.yaml": validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.False(t, summary.Passed())
		require.Error(t, summary.Err())

		var vErr *ValidationError
		require.ErrorAs(t, summary.Err(), &vErr)
		assert.Contains(t, vErr.Artifacts, "composition")
	})

	t.Run("hardcoded values warn but do not fail", func(t *testing.T) {
		cfg := writeStack(t, manifest, map[string]string{
			"main.yaml": validComponent,
			"network.yaml": `
Resources:
  Vpc:
    Type: AWS::EC2::VPC
    Properties:
      CidrBlock: 10.0.0.0/16
      Account: "123456789012"
      Region: us-east-1
`,
			"compute.yaml": validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.True(t, summary.Passed())
		assert.NoError(t, summary.Err())
		assert.GreaterOrEqual(t, summary.Warnings, 3)
	})

	t.Run("dependency cycle is an error", func(t *testing.T) {
		cyclic := `
project: p
components:
  - name: a
    template: a.yaml
    dependsOn: [b]
  - name: b
    template: b.yaml
    dependsOn: [a]
`
		cfg := writeStack(t, cyclic, map[string]string{
			"main.yaml": validComponent,
			"a.yaml":    validComponent,
			"b.yaml":    validComponent,
		})
		summary := NewValidator(cfg, discardLogger()).ValidateAll()
		assert.False(t, summary.Passed())
	})
}
