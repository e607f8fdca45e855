package understory

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/understory/internal/analyzer"
	"github.com/jward/understory/internal/classify"
	"github.com/jward/understory/internal/record"
)

// writeTree materializes a map of relative path -> content under dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestEngine(t *testing.T, root string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(root, t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func readModuleLog(t *testing.T, e *Engine, module string) []record.Record {
	t.Helper()
	f, err := os.Open(e.store.LogPath(module))
	require.NoError(t, err)
	defer f.Close()

	var recs []record.Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var r record.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		recs = append(recs, r)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	require.Error(t, err)
}

func TestNew_RootMustBeDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err := New(file, t.TempDir())
	require.Error(t, err)
}

func TestRun_PythonTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":        "import helper\n\ndef main():\n    helper.run()\n",
		"helper.py":      "def run():\n    pass\n",
		"lib/shared.py":  "import os\n\nclass Shared:\n    pass\n",
		"docs/README.md": "# Project\n\nSee [guide](guide.md).\n",
	})

	e := newTestEngine(t, root)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Counters.Processed)
	assert.Zero(t, res.Counters.ValidationFailures)

	// Per-directory module logs.
	rootRecs := readModuleLog(t, e, ".")
	assert.Len(t, rootRecs, 2)
	libRecs := readModuleLog(t, e, "lib")
	require.Len(t, libRecs, 1)
	assert.Equal(t, "lib", libRecs[0].ModulePath)
	assert.Equal(t, "python", libRecs[0].Language)

	// Intra-repo import became an edge; "os" did not.
	mainPath := filepath.Join(root, "main.py")
	helperPath := filepath.Join(root, "helper.py")
	assert.True(t, res.Graph.HasEdge(mainPath, helperPath))

	unresolvedSpecs := make([]string, 0, len(res.Unresolved))
	for _, u := range res.Unresolved {
		unresolvedSpecs = append(unresolvedSpecs, u.Specifier)
	}
	assert.Contains(t, unresolvedSpecs, "os")

	// Stats cover every persisted record.
	assert.Equal(t, 4, res.Stats.TotalFiles)
	assert.Equal(t, 3, res.Stats.FilesByLanguage["python"])
	assert.Equal(t, 1, res.Stats.FilesByLanguage["markdown"])
}

func TestRun_GraphArtifactsWritten(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "import b\n",
		"b.py": "x = 1\n",
	})

	graphDir := t.TempDir()
	e := newTestEngine(t, root, WithGraphDir(graphDir))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	dot, err := os.ReadFile(filepath.Join(graphDir, "dependency_graph.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph dependency_graph")

	data, err := os.ReadFile(filepath.Join(graphDir, "dependency_graph.json"))
	require.NoError(t, err)
	var artifact struct {
		Nodes []GraphNode `json:"nodes"`
		Edges []GraphEdge `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Len(t, artifact.Nodes, 2)
	assert.Len(t, artifact.Edges, 1)

	// The call graph ships as its own artifact pair.
	callDot, err := os.ReadFile(filepath.Join(graphDir, "call_graph.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(callDot), "digraph call_graph")
	_, err = os.Stat(filepath.Join(graphDir, "call_graph.json"))
	require.NoError(t, err)
}

func TestRun_CallGraph(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"loader.py": "def load(path):\n    return parse(path)\n\ndef parse(data):\n    return data\n",
		"run.py":    "import loader\n\nloader.load(\"x\")\n",
	})

	e := newTestEngine(t, root)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.CallGraph)
	assert.True(t, res.CallGraph.HasEdge("load", "parse"))
	// Top-level call in run.py is attributed to the file's module scope.
	assert.True(t, res.CallGraph.HasEdge("run", "load"))
}

func TestRun_CrossModuleImportEdge(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"moduleA/a.py": "import moduleB.b\n\ndef go():\n    pass\n",
		"moduleB/b.py": "x = 1\n",
	})

	e := newTestEngine(t, root)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	aPath := filepath.Join(root, "moduleA", "a.py")
	bPath := filepath.Join(root, "moduleB", "b.py")
	assert.True(t, res.Graph.HasEdge(aPath, bPath))
	assert.Empty(t, res.Unresolved)
}

func TestRun_OutputDirInsideRootNotIngested(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.py": "x = 1\n"})
	out := filepath.Join(root, "analysis_output")

	e1, err := New(root, out)
	require.NoError(t, err)
	res1, err := e1.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e1.Close())
	require.Equal(t, 1, res1.Counters.Processed)

	// The second run walks a root that now contains the first run's logs
	// and cache; none of it may be ingested.
	e2, err := New(root, out)
	require.NoError(t, err)
	res2, err := e2.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e2.Close())

	assert.Equal(t, 1, res2.Counters.Processed)
	assert.Equal(t, 1, res2.Stats.TotalFiles)
	for module := range e2.Modules() {
		assert.NotContains(t, module, "analysis_output")
	}
}

func TestRun_SkipsBinariesAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":           "x = 1\n",
		".git/config":       "[core]\n",
		"node_modules/a.js": "ignored\n",
		"__pycache__/m.pyc": "ignored\n",
		"vendor/dep/dep.go": "package dep\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"),
		[]byte("\x89PNG\r\n\x1a\n\x00\x00"), 0o644))

	e := newTestEngine(t, root)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Counters.Processed)
	assert.Equal(t, 1, res.Counters.Skipped, "only the binary counts as skipped; pruned dirs are never visited")
}

func TestRun_LanguageFilter(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":  "x = 1\n",
		"index.js": "const x = 1;\n",
	})

	e := newTestEngine(t, root, WithLanguages("python"))
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Counters.Processed)
	assert.Equal(t, 1, res.Counters.Skipped)
	recs := readModuleLog(t, e, ".")
	require.Len(t, recs, 1)
	assert.Equal(t, "python", recs[0].Language)
}

func TestRun_ManyFilesNoDuplicates(t *testing.T) {
	root := t.TempDir()
	const n = 60
	files := make(map[string]string, n)
	for i := range n {
		files[fmt.Sprintf("f%02d.py", i)] = fmt.Sprintf("x = %d\n", i)
	}
	writeTree(t, root, files)

	e := newTestEngine(t, root, WithWorkers(8))
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, n, res.Counters.Processed)
	recs := readModuleLog(t, e, ".")
	require.Len(t, recs, n)

	seen := make(map[string]bool, n)
	for _, r := range recs {
		assert.False(t, seen[r.FilePath], "duplicate record for %s", r.FilePath)
		seen[r.FilePath] = true
	}
}

// countingAnalyzer tracks invocations so cache behavior is observable.
type countingAnalyzer struct {
	calls atomic.Int64
	fail  bool
}

func (a *countingAnalyzer) Name() string { return "counting" }

func (a *countingAnalyzer) Analyze(_ context.Context, req analyzer.Request) (*record.Record, error) {
	a.calls.Add(1)
	if a.fail {
		return nil, errors.New("induced failure")
	}
	content := string(req.Content)
	return &record.Record{
		FilePath: req.Path,
		Language: "python",
		Content:  &content,
		Analysis: record.Facts{"imports": []string{}},
		Metadata: record.Metadata{LOC: 1, Size: req.Size},
	}, nil
}

func countingDispatcher(a *countingAnalyzer) *analyzer.Dispatcher {
	d := analyzer.NewDispatcher(analyzer.NewDefault(), nil)
	d.Register(".py", a)
	return d
}

func TestRun_WarmCacheSkipsAnalyzers(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
	})
	out := t.TempDir()
	cacheFile := filepath.Join(out, "analysis_cache.json")

	counter := &countingAnalyzer{}
	e1, err := New(root, out, WithCacheFile(cacheFile), WithDispatcher(countingDispatcher(counter)))
	require.NoError(t, err)
	res1, err := e1.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	assert.Equal(t, int64(2), counter.calls.Load())
	assert.Equal(t, 2, res1.Counters.Processed)
	assert.Zero(t, res1.Counters.CacheHits)

	// Unchanged tree: the second run reuses every record without invoking
	// an analyzer.
	e2, err := New(root, out, WithCacheFile(cacheFile), WithDispatcher(countingDispatcher(counter)))
	require.NoError(t, err)
	res2, err := e2.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e2.Close())

	assert.Equal(t, int64(2), counter.calls.Load(), "no analyzer invocations on a warm cache")
	assert.Equal(t, 2, res2.Counters.CacheHits)
	assert.Equal(t, 2, res2.Counters.Processed)
}

func TestRun_EditedFileReanalyzed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
	})
	out := t.TempDir()
	cacheFile := filepath.Join(out, "analysis_cache.json")

	counter := &countingAnalyzer{}
	e1, err := New(root, out, WithCacheFile(cacheFile), WithDispatcher(countingDispatcher(counter)))
	require.NoError(t, err)
	_, err = e1.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e1.Close())
	require.Equal(t, int64(2), counter.calls.Load())

	writeTree(t, root, map[string]string{"a.py": "x = 99\n"})

	e2, err := New(root, out, WithCacheFile(cacheFile), WithDispatcher(countingDispatcher(counter)))
	require.NoError(t, err)
	res, err := e2.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e2.Close())

	assert.Equal(t, int64(3), counter.calls.Load(), "only the edited file is reanalyzed")
	assert.Equal(t, 1, res.Counters.CacheHits)
}

func TestRun_FaultIsolation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"bad.py":   "x = 1\n",
		"good.md":  "# fine\n",
		"other.md": "# also fine\n",
	})

	failing := &countingAnalyzer{fail: true}
	d := analyzer.NewDispatcher(analyzer.NewDefault(), nil)
	d.Register(".py", failing)
	d.Register(".md", analyzer.NewMarkdown())

	e := newTestEngine(t, root, WithDispatcher(d))
	res, err := e.Run(context.Background())
	require.NoError(t, err, "a failing analyzer must not abort the run")

	assert.Equal(t, 2, res.Counters.Processed)
	assert.Equal(t, 1, res.Counters.Skipped)

	recs := readModuleLog(t, e, ".")
	assert.Len(t, recs, 2)
	for _, r := range recs {
		assert.NotEqual(t, filepath.Join(root, "bad.py"), r.FilePath)
	}
}

func TestRun_DocLinksAnnotation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.py": "x = 1\n"})

	mainPath := filepath.Join(root, "main.py")
	csvPath := filepath.Join(t.TempDir(), "links.csv")
	csv := "File,Documentation\n" + mainPath + ",https://docs.example.com/main\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	e := newTestEngine(t, root, WithDocLinks(csvPath))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	recs := e.Modules()["."]
	require.Len(t, recs, 1)
	assert.Equal(t, "https://docs.example.com/main", recs[0].Documentation)
}

func TestComputeStats(t *testing.T) {
	modules := ModuleMap{
		".": {
			{FilePath: "a.py", Language: "python", Analysis: record.Facts{
				"lint_results": []analyzer.Diagnostic{
					{Rule: "unused-import", Line: 1},
					{Rule: "unused-import", Line: 4},
					{Rule: "missing-docstring", Line: 1},
				},
			}, Metadata: record.Metadata{LOC: 10, Size: 100}},
		},
		"lib": {
			{FilePath: "lib/b.go", Language: "go", Analysis: record.Facts{}, Metadata: record.Metadata{LOC: 20, Size: 300}},
		},
	}

	stats := ComputeStats(modules)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 30, stats.TotalLOC)
	assert.Equal(t, int64(400), stats.TotalSize)
	assert.Equal(t, 1, stats.FilesByModule["."])
	assert.Equal(t, 1, stats.FilesByModule["lib"])
	assert.Equal(t, 10, stats.LOCByLanguage["python"])
	assert.Equal(t, int64(300), stats.SizeByLanguage["go"])
	assert.Equal(t, 2, stats.LintViolations["unused-import"])
	assert.Equal(t, 1, stats.LintViolations["missing-docstring"])
}

func TestPublicAliases(t *testing.T) {
	// The public aliases stay assignable to the internal types.
	var r Record = record.Record{FilePath: "a.py"}
	assert.Equal(t, "a.py", r.FilePath)
	assert.Equal(t, "python", classify.LangPython)
}
