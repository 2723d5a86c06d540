package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *StackConfig {
	t.Helper()
	dir := t.TempDir()
	manifest := filepath.Join(dir, "stack.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
project: datalake
components:
  - name: network
    template: network.yaml
`), 0o644))
	cfg, err := Load(manifest)
	require.NoError(t, err)
	return cfg
}

func TestResolveEnvironment(t *testing.T) {
	cfg := testConfig(t)

	t.Run("valid environment derives stack name", func(t *testing.T) {
		environ, err := ResolveEnvironment(cfg, "dev", "us-east-1", "")
		require.NoError(t, err)
		assert.Equal(t, "datalake-dev", environ.StackName)
		assert.Equal(t, "dev", environ.Name)
		assert.Equal(t, "us-east-1", environ.Region)
		assert.Equal(t, "datalake", environ.Project)
	})

	t.Run("stack name override wins", func(t *testing.T) {
		environ, err := ResolveEnvironment(cfg, "prod", "eu-west-1", "custom-stack")
		require.NoError(t, err)
		assert.Equal(t, "custom-stack", environ.StackName)
	})

	t.Run("unknown environment name", func(t *testing.T) {
		_, err := ResolveEnvironment(cfg, "qa", "us-east-1", "")
		require.Error(t, err)
		assert.True(t, IsInvalidInputError(err))
	})

	t.Run("unknown region", func(t *testing.T) {
		_, err := ResolveEnvironment(cfg, "dev", "mars-north-1", "")
		require.Error(t, err)
		assert.True(t, IsInvalidInputError(err))
	})

	t.Run("parameter file prefers yaml over json", func(t *testing.T) {
		paramDir := filepath.Join(cfg.BaseDir(), DefaultParameterDir)
		require.NoError(t, os.MkdirAll(paramDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(paramDir, "dev.json"), []byte("{}"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(paramDir, "dev.yaml"), []byte("{}"), 0o644))

		environ, err := ResolveEnvironment(cfg, "dev", "us-east-1", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(paramDir, "dev.yaml"), environ.ParameterFile)
	})
}

func TestLoadManifest(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		cfg := testConfig(t)
		assert.Equal(t, DefaultComposition, cfg.Composition)
		assert.Equal(t, DefaultTemplateDir, cfg.TemplateDir)
		assert.Equal(t, DefaultParameterDir, cfg.ParameterDir)
		assert.Empty(t, cfg.CodePath())
	})

	t.Run("duplicate component names rejected", func(t *testing.T) {
		dir := t.TempDir()
		manifest := filepath.Join(dir, "stack.yaml")
		require.NoError(t, os.WriteFile(manifest, []byte(`
project: p
components:
  - name: a
    template: a.yaml
  - name: a
    template: b.yaml
`), 0o644))
		_, err := Load(manifest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate component name")
	})

	t.Run("durable components listed", func(t *testing.T) {
		dir := t.TempDir()
		manifest := filepath.Join(dir, "stack.yaml")
		require.NoError(t, os.WriteFile(manifest, []byte(`
project: p
components:
  - name: database
    template: db.yaml
    durable: true
  - name: compute
    template: compute.yaml
`), 0o644))
		cfg, err := Load(manifest)
		require.NoError(t, err)
		assert.Equal(t, []string{"database"}, cfg.DurableComponents())
	})
}
