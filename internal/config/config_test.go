package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semview/semview/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultTarget, cfg.Index.Target)
	assert.True(t, cfg.Index.CleanTarget)
	assert.False(t, cfg.Index.Zip)
	assert.Equal(t, 300, cfg.Watch.DebounceMs)
	assert.Empty(t, cfg.Index.Classpath)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "custom.toml"))
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semview.toml")
	content := `
include = ["**/*.semanticdb"]
exclude = ["**/test/**"]

[project]
root = "/work/app"
name = "app"

[index]
classpath = ["target/classes", "lib/out"]
target = "build/index"
zip = true
clean_target = false

[performance]
parallel_file_workers = 4
write_workers = 2

[watch]
enabled = true
debounce_ms = 150
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Project.Name)
	assert.Equal(t, []string{"target/classes", "lib/out"}, cfg.Index.Classpath)
	assert.Equal(t, "build/index", cfg.Index.Target)
	assert.True(t, cfg.Index.Zip)
	assert.False(t, cfg.Index.CleanTarget)
	assert.Equal(t, 4, cfg.Performance.ParallelFileWorkers)
	assert.Equal(t, 2, cfg.Performance.WriteWorkers)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 150, cfg.Watch.DebounceMs)
	assert.Equal(t, []string{"**/*.semanticdb"}, cfg.Include)
	assert.Equal(t, []string{"**/test/**"}, cfg.Exclude)
}

func TestLoadPartialTOMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semview.toml")
	require.NoError(t, os.WriteFile(path, []byte("[index]\nclasspath = [\"out\"]\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"out"}, cfg.Index.Classpath)
	assert.Equal(t, DefaultTarget, cfg.Index.Target)
	assert.True(t, cfg.Index.CleanTarget)
	assert.Equal(t, 300, cfg.Watch.DebounceMs)
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semview.toml")
	require.NoError(t, os.WriteFile(path, []byte("[index\nclasspath ="), 0644))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Index.Classpath = []string{"out"}
		return cfg
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no classpath", func(c *Config) { c.Index.Classpath = nil }},
		{"empty target", func(c *Config) { c.Index.Target = "" }},
		{"negative parse workers", func(c *Config) { c.Performance.ParallelFileWorkers = -1 }},
		{"negative write workers", func(c *Config) { c.Performance.WriteWorkers = -2 }},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWorkerResolution(t *testing.T) {
	cfg := Default()
	cfg.Performance.ParallelFileWorkers = 3
	cfg.Performance.WriteWorkers = 7
	assert.Equal(t, 3, cfg.ParseWorkers())
	assert.Equal(t, 7, cfg.IndexWriteWorkers())

	auto := Default()
	want := max(1, runtime.NumCPU()-1)
	assert.Equal(t, want, auto.ParseWorkers())
	assert.Equal(t, want, auto.IndexWriteWorkers())
	assert.GreaterOrEqual(t, auto.ParseWorkers(), 1)
}
