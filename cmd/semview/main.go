package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/semview/semview/internal/config"
	"github.com/semview/semview/internal/debug"
	"github.com/semview/semview/internal/indexing"
	"github.com/semview/semview/internal/version"
	"github.com/semview/semview/pkg/pathutil"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if classpath := c.StringSlice("classpath"); len(classpath) > 0 {
		cfg.Index.Classpath = classpath
	}
	if target := c.String("target"); target != "" {
		cfg.Index.Target = target
	}
	if c.IsSet("zip") {
		cfg.Index.Zip = c.Bool("zip")
	}
	if c.IsSet("clean-target") {
		cfg.Index.CleanTarget = c.Bool("clean-target")
	}
	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if workers := c.Int("workers"); workers > 0 {
		cfg.Performance.ParallelFileWorkers = workers
	}
	if c.Bool("watch") {
		cfg.Watch.Enabled = true
	}

	// Classpath roots become absolute so rebuild triggers resolve
	// consistently regardless of the working directory.
	for i, root := range cfg.Index.Classpath {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve classpath root %q: %w", root, err)
		}
		cfg.Index.Classpath[i] = absRoot
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "semview",
		Usage:                  "Build a browsable static symbol index from compiled semantic metadata",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.DefaultConfigFile,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "Scan classpath roots and build the symbol index",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "classpath",
						Aliases: []string{"p"},
						Usage:   "Classpath root to scan for metadata files (repeatable)",
					},
					&cli.StringFlag{
						Name:    "target",
						Aliases: []string{"t"},
						Usage:   "Output directory (or archive path with --zip)",
					},
					&cli.BoolFlag{
						Name:  "zip",
						Usage: "Write the whole index into a single zip container",
					},
					&cli.BoolFlag{
						Name:  "clean-target",
						Usage: "Remove an existing target before writing",
					},
					&cli.StringSliceFlag{
						Name:  "include",
						Usage: "Only index metadata files matching glob patterns (e.g. --include '**/main/**')",
					},
					&cli.StringSliceFlag{
						Name:  "exclude",
						Usage: "Skip metadata files matching glob patterns (e.g. --exclude '**/test/**')",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Parallel parse workers (0 = auto-detect)",
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep running and rebuild the index when the classpath changes",
					},
					&cli.StringFlag{
						Name:   "profile-cpu",
						Usage:  "Write CPU profile to file",
						Hidden: true,
					},
					&cli.StringFlag{
						Name:   "profile-memory",
						Usage:  "Write memory profile to file",
						Hidden: true,
					},
				},
				Action: runIndex,
			},
		},
	}

	if debug.IsDebugEnabled() {
		if logPath, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
			log.Printf("Debug logging to %s", logPath)
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runIndex(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	if cpuProfile := c.String("profile-cpu"); cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runOnce(ctx, cfg); err != nil {
		return err
	}

	if memProfile := c.String("profile-memory"); memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return fmt.Errorf("failed to create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if !cfg.Watch.Enabled {
		return nil
	}
	return runWatch(ctx, cfg)
}

// runOnce executes one full rebuild and prints the outcome.
func runOnce(ctx context.Context, cfg *config.Config) error {
	pipeline := indexing.NewPipeline(cfg)
	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if result.DecodeErrors > 0 {
		log.Printf("Skipped %d unreadable metadata files (see warnings above)", result.DecodeErrors)
	}
	fmt.Printf("Indexed %d symbols from %d documents (%d metadata files) in %v\n",
		result.SymbolsWritten, result.DocumentsFound, result.FilesScanned, result.Duration)
	target := result.Target
	if cwd, err := os.Getwd(); err == nil {
		target = pathutil.ToRelative(target, cwd)
	}
	fmt.Printf("Index written to %s\n", target)
	return nil
}

// runWatch keeps rebuilding the index until the context is cancelled.
func runWatch(ctx context.Context, cfg *config.Config) error {
	watcher, err := indexing.NewRebuildWatcher(cfg.Index.Classpath, cfg.Watch.DebounceMs, func() {
		if err := runOnce(ctx, cfg); err != nil {
			log.Printf("Rebuild failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Println("Watching classpath for changes (Ctrl-C to stop)")
	<-ctx.Done()
	return watcher.Stop()
}
