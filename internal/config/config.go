package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/semview/semview/internal/errors"
)

// DefaultConfigFile is the config filename looked up in the working
// directory when no --config flag is given.
const DefaultConfigFile = ".semview.toml"

// DefaultTarget is the output directory used when none is configured.
const DefaultTarget = "semview-index"

type Config struct {
	Project     Project     `toml:"project"`
	Index       Index       `toml:"index"`
	Performance Performance `toml:"performance"`
	Watch       Watch       `toml:"watch"`
	Include     []string    `toml:"include"`
	Exclude     []string    `toml:"exclude"`
}

type Project struct {
	Root string `toml:"root"`
	Name string `toml:"name"`
}

type Index struct {
	Classpath   []string `toml:"classpath"`    // roots scanned for metadata files
	Target      string   `toml:"target"`       // output directory, or zip path with Zip
	Zip         bool     `toml:"zip"`          // write everything into one zip container
	CleanTarget bool     `toml:"clean_target"` // remove the target before writing
}

type Performance struct {
	ParallelFileWorkers int `toml:"parallel_file_workers"` // 0 = auto-detect (NumCPU)
	WriteWorkers        int `toml:"write_workers"`         // 0 = auto-detect
}

type Watch struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Index: Index{
			Target:      DefaultTarget,
			CleanTarget: true,
		},
		Watch: Watch{
			DebounceMs: 300,
		},
	}
}

// Load reads the TOML config at path. A missing file is not an error when
// path is the default location; the defaults are returned instead.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && filepath.Base(path) == DefaultConfigFile {
			return Default(), nil
		}
		return nil, errors.NewConfigError("config", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, errors.NewConfigError("config", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration after CLI overrides were applied.
func (c *Config) Validate() error {
	if len(c.Index.Classpath) == 0 {
		return errors.NewConfigError("index.classpath", "", fmt.Errorf("at least one classpath root is required"))
	}
	if c.Index.Target == "" {
		return errors.NewConfigError("index.target", "", fmt.Errorf("target must not be empty"))
	}
	if c.Performance.ParallelFileWorkers < 0 {
		return errors.NewConfigError("performance.parallel_file_workers",
			fmt.Sprintf("%d", c.Performance.ParallelFileWorkers), fmt.Errorf("must be >= 0"))
	}
	if c.Performance.WriteWorkers < 0 {
		return errors.NewConfigError("performance.write_workers",
			fmt.Sprintf("%d", c.Performance.WriteWorkers), fmt.Errorf("must be >= 0"))
	}
	if c.Watch.DebounceMs < 0 {
		return errors.NewConfigError("watch.debounce_ms",
			fmt.Sprintf("%d", c.Watch.DebounceMs), fmt.Errorf("must be >= 0"))
	}
	return nil
}

// ParseWorkers resolves the parse-phase worker count. Auto-detection leaves
// one core of headroom for the system, minimum of 1.
func (c *Config) ParseWorkers() int {
	if c.Performance.ParallelFileWorkers > 0 {
		return c.Performance.ParallelFileWorkers
	}
	return max(1, runtime.NumCPU()-1)
}

// IndexWriteWorkers resolves the write-phase worker count.
func (c *Config) IndexWriteWorkers() int {
	if c.Performance.WriteWorkers > 0 {
		return c.Performance.WriteWorkers
	}
	return max(1, runtime.NumCPU()-1)
}
