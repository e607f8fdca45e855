package understory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jward/understory/internal/analyzer"
	"github.com/jward/understory/internal/cache"
	"github.com/jward/understory/internal/doclinks"
	"github.com/jward/understory/internal/entity"
	"github.com/jward/understory/internal/record"
	"github.com/jward/understory/internal/resolve"
)

// Engine orchestrates the snapshot pipeline: directory walk, per-file
// classification and analysis on a bounded worker pool, record
// persistence, and the post-barrier dependency resolution phase.
type Engine struct {
	root        string
	outputDir   string
	graphDir    string
	cacheFile   string
	docLinksCSV string

	// outAbs and cacheAbs are the absolute output locations, excluded from
	// the walk so a run never ingests its own artifacts.
	outAbs   string
	cacheAbs string

	workers   int
	languages map[string]bool // nil means all languages

	extractor  entity.Extractor
	linter     analyzer.Linter
	lintTools  map[string]string
	dispatcher *analyzer.Dispatcher
	strategies map[string]resolve.Strategy

	store *record.Store
	cache *cache.Cache

	// mu guards modules and counters; both are written by workers.
	mu       sync.Mutex
	modules  resolve.ModuleMap
	counters Counters
}

// Counters are the per-run accounting surfaced in the summary.
type Counters struct {
	Processed          int // records persisted this run
	CacheHits          int // records reused from the content cache
	Skipped            int // binary, filtered, unreadable, or analyzer-failed files
	ValidationFailures int // records discarded by validation
}

// Result is what a completed run hands back to the caller.
type Result struct {
	Stats      *Stats
	Graph      *resolve.Graph
	CallGraph  *resolve.Graph
	Counters   Counters
	Unresolved []resolve.UnresolvedImport
	Duration   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the worker pool size. Defaults to runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLanguages restricts which languages the Engine will analyze.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithEntityExtractor injects the entity-extraction collaborator. The
// extractor is constructed once and passed into every analyzer
// invocation; there is no hidden global.
func WithEntityExtractor(x entity.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithLinter injects the external lint collaborator and the per-language
// tool table ("python" -> "pylint").
func WithLinter(l analyzer.Linter, tools map[string]string) Option {
	return func(e *Engine) {
		e.linter = l
		e.lintTools = tools
	}
}

// WithDispatcher replaces the default analyzer registry entirely. Mostly a
// test seam; production callers use the defaults plus WithLinter.
func WithDispatcher(d *analyzer.Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithCacheFile overrides the analysis-cache path. Default:
// analysis_cache.json inside the output directory.
func WithCacheFile(path string) Option {
	return func(e *Engine) { e.cacheFile = path }
}

// WithGraphDir sets where the dependency-graph artifacts are written.
// Empty disables artifact output; the graph is still built and returned.
func WithGraphDir(dir string) Option {
	return func(e *Engine) { e.graphDir = dir }
}

// WithDocLinks points at the optional CSV mapping file paths to
// documentation URLs.
func WithDocLinks(csvPath string) Option {
	return func(e *Engine) { e.docLinksCSV = csvPath }
}

// WithResolverStrategy substitutes the import-resolution strategy for one
// language.
func WithResolverStrategy(language string, s resolve.Strategy) Option {
	return func(e *Engine) { e.strategies[language] = s }
}

// New validates the setup and builds an Engine. A missing root or an
// uncreatable output directory is fatal here, before any task starts; all
// later failures are per-file and isolated.
func New(root, outputDir string, opts ...Option) (*Engine, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", root)
	}

	store, err := record.NewStore(outputDir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		root:       root,
		outputDir:  outputDir,
		workers:    runtime.NumCPU(),
		strategies: make(map[string]resolve.Strategy),
		store:      store,
		modules:    make(resolve.ModuleMap),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cacheFile == "" {
		e.cacheFile = filepath.Join(outputDir, "analysis_cache.json")
	}
	e.cache = cache.Load(e.cacheFile)

	if e.outAbs, err = filepath.Abs(outputDir); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if e.cacheAbs, err = filepath.Abs(e.cacheFile); err != nil {
		return nil, fmt.Errorf("cache file: %w", err)
	}

	if e.extractor == nil {
		e.extractor = entity.NewHeuristic()
	}
	if e.dispatcher == nil {
		e.dispatcher = analyzer.NewRegistry(analyzer.Config{
			Extractor: e.extractor,
			Linter:    e.linter,
			LintTools: e.lintTools,
		})
	}

	return e, nil
}

// Close releases the Engine's open module logs.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Run executes the full pipeline. The analysis phase must finish before
// resolution starts: the resolver reads the completed module map and may
// reference any module, not just the importer's.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	if err := e.walk(ctx); err != nil {
		return nil, fmt.Errorf("walk %s: %w", e.root, err)
	}

	e.annotateDocLinks()

	resolver := resolve.NewResolver(e.modules)
	for lang, s := range e.strategies {
		resolver.RegisterStrategy(lang, s)
	}
	graph := resolver.Resolve()
	callGraph := resolve.BuildCallGraph(e.modules)

	if e.graphDir != "" {
		if err := e.writeGraphArtifacts(graph, callGraph); err != nil {
			return nil, err
		}
	}

	if err := e.cache.Save(); err != nil {
		logrus.WithError(err).Error("saving analysis cache")
	}

	stats := ComputeStats(e.modules)

	result := &Result{
		Stats:      stats,
		Graph:      graph,
		CallGraph:  callGraph,
		Counters:   e.counters,
		Unresolved: resolver.Unresolved,
		Duration:   time.Since(start),
	}
	e.logSummary(result)
	return result, nil
}

// Modules returns the module map built by the last Run. Read-only after
// the analysis phase.
func (e *Engine) Modules() resolve.ModuleMap {
	return e.modules
}

// annotateDocLinks consults the documentation-link table after persistence
// to annotate in-memory records. Optional; failures are logged, never
// fatal.
func (e *Engine) annotateDocLinks() {
	if e.docLinksCSV == "" {
		return
	}
	table, err := doclinks.Load(e.docLinksCSV)
	if err != nil {
		logrus.WithError(err).Warn("documentation links unavailable")
		return
	}
	if len(table) == 0 {
		return
	}
	for _, recs := range e.modules {
		for _, r := range recs {
			if url, ok := table[r.FilePath]; ok {
				r.Documentation = url
			}
		}
	}
}

func (e *Engine) writeGraphArtifacts(graph, callGraph *resolve.Graph) error {
	if err := os.MkdirAll(e.graphDir, 0o755); err != nil {
		return fmt.Errorf("create graph directory: %w", err)
	}
	if err := e.writeGraph(graph, "dependency_graph"); err != nil {
		return err
	}
	return e.writeGraph(callGraph, "call_graph")
}

// writeGraph emits the DOT and JSON artifact pair for one graph.
func (e *Engine) writeGraph(graph *resolve.Graph, name string) error {
	dotPath := filepath.Join(e.graphDir, name+".dot")
	dotFile, err := os.Create(dotPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", dotPath, err)
	}
	defer dotFile.Close()
	if err := graph.WriteDOT(dotFile, name); err != nil {
		return err
	}

	jsonPath := filepath.Join(e.graphDir, name+".json")
	jsonFile, err := os.Create(jsonPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", jsonPath, err)
	}
	defer jsonFile.Close()
	return graph.WriteJSON(jsonFile)
}

func (e *Engine) logSummary(res *Result) {
	logrus.WithFields(logrus.Fields{
		"processed":           res.Counters.Processed,
		"cache_hits":          res.Counters.CacheHits,
		"skipped":             res.Counters.Skipped,
		"validation_failures": res.Counters.ValidationFailures,
		"unresolved_imports":  len(res.Unresolved),
		"graph_nodes":         res.Graph.NodeCount(),
		"graph_edges":         res.Graph.EdgeCount(),
		"call_edges":          res.CallGraph.EdgeCount(),
		"duration":            res.Duration.Round(time.Millisecond).String(),
	}).Info("snapshot complete")

	for rule, count := range res.Stats.LintViolations {
		logrus.WithFields(logrus.Fields{"rule": rule, "count": count}).Info("lint violations")
	}
}
