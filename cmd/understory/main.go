package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/understory"
	"github.com/jward/understory/internal/analyzer"
	"github.com/jward/understory/internal/config"
	"github.com/jward/understory/internal/entity"
	"github.com/jward/understory/internal/logging"
	"github.com/jward/understory/internal/record"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagLogFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "understory",
	Short:         "Language-agnostic codebase snapshots",
	Long:          "Understory walks a source tree, analyzes every file with tree-sitter and format-specific analyzers, writes per-module JSON-Lines records, and builds the cross-file import graph.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (flags override config values)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text|json")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "append logs to this file as well as stderr")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(verifyCmd)
}

var (
	flagOut       string
	flagGraphDir  string
	flagCache     string
	flagDocLinks  string
	flagWorkers   int
	flagLanguages string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [path]",
	Short: "Analyze a source tree and write the snapshot",
	Long:  "Classifies and analyzes every file under the target directory, appends one JSON record per file to its module's log, and writes the dependency-graph artifacts.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&flagOut, "out", "", "output directory for module logs (default: <root>/analysis_output)")
	snapshotCmd.Flags().StringVar(&flagGraphDir, "graph-dir", "", "directory for dependency-graph artifacts (default: the output directory)")
	snapshotCmd.Flags().StringVar(&flagCache, "cache", "", "analysis cache file (default: analysis_cache.json in the output directory)")
	snapshotCmd.Flags().StringVar(&flagDocLinks, "doc-links", "", "CSV file mapping file paths to documentation URLs")
	snapshotCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size (default: number of CPUs)")
	snapshotCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,python)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(cfg, args)

	logging.Init(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})

	root, err := resolveRoot(cfg.Root)
	if err != nil {
		return err
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(root, "analysis_output")
	}
	graphDir := cfg.GraphDir
	if graphDir == "" {
		graphDir = outputDir
	}

	opts := []understory.Option{
		understory.WithGraphDir(graphDir),
	}
	if cfg.CacheFile != "" {
		opts = append(opts, understory.WithCacheFile(cfg.CacheFile))
	}
	if cfg.DocLinks != "" {
		opts = append(opts, understory.WithDocLinks(cfg.DocLinks))
	}
	if cfg.Workers > 0 {
		opts = append(opts, understory.WithWorkers(cfg.Workers))
	}
	if len(cfg.Languages) > 0 {
		opts = append(opts, understory.WithLanguages(cfg.Languages...))
	}
	if len(cfg.Lint.Tools) > 0 {
		opts = append(opts, understory.WithLinter(analyzer.NewExecLinter(0), cfg.Lint.Tools))
	}

	ctx := context.Background()

	extractor, err := buildExtractor(ctx, cfg)
	if err != nil {
		return err
	}
	if extractor != nil {
		opts = append(opts, understory.WithEntityExtractor(extractor))
	}

	engine, err := understory.New(root, outputDir, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	formatStats(os.Stdout, result.Stats)

	fmt.Fprintf(os.Stderr, "Snapshot of %s in %s (%d processed, %d cached, %d skipped)\n",
		root,
		time.Since(start).Round(time.Millisecond),
		result.Counters.Processed,
		result.Counters.CacheHits,
		result.Counters.Skipped,
	)
	fmt.Fprintf(os.Stderr, "Output: %s\n", outputDir)
	return nil
}

// applyFlags layers command-line flags over the loaded config. Flags win.
func applyFlags(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Root = args[0]
	}
	if flagOut != "" {
		cfg.OutputDir = flagOut
	}
	if flagGraphDir != "" {
		cfg.GraphDir = flagGraphDir
	}
	if flagCache != "" {
		cfg.CacheFile = flagCache
	}
	if flagDocLinks != "" {
		cfg.DocLinks = flagDocLinks
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagLanguages != "" {
		langs := strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		cfg.Languages = langs
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
	if flagLogFile != "" {
		cfg.Logging.File = flagLogFile
	}
}

// resolveRoot returns the absolute target directory.
func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// buildExtractor picks the entity provider from config. Returning nil keeps
// the engine's default heuristic extractor.
func buildExtractor(ctx context.Context, cfg *config.Config) (entity.Extractor, error) {
	switch cfg.Entities.Provider {
	case "", "heuristic":
		return nil, nil
	case "gemini":
		if cfg.Entities.APIKey == "" {
			return nil, fmt.Errorf("entity provider gemini requires an API key (UNDERSTORY_API_KEY or entities.api_key)")
		}
		return entity.NewGemini(ctx, cfg.Entities.APIKey, cfg.Entities.Model)
	default:
		return nil, fmt.Errorf("unknown entity provider %q", cfg.Entities.Provider)
	}
}

var verifyCmd = &cobra.Command{
	Use:   "verify [output-dir]",
	Short: "Check that every module log parses as JSON-Lines",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := "analysis_output"
	if len(args) > 0 {
		dir = args[0]
	}

	var checked, failed int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}
		checked++
		if verr := record.VerifyFile(path); verr != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s\n", verr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("verify %s: %w", dir, err)
	}

	fmt.Fprintf(os.Stderr, "Verified %d module logs, %d failed\n", checked, failed)
	if failed > 0 {
		return fmt.Errorf("%d module logs failed verification", failed)
	}
	return nil
}
