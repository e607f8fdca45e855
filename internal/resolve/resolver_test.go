package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/understory/internal/record"
)

func pyRecord(path string, imports ...string) *record.Record {
	return &record.Record{
		FilePath: path,
		Language: "python",
		Analysis: record.Facts{"imports": imports},
		Metadata: record.Metadata{LOC: 1, Size: 1},
	}
}

// =============================================================================
// SuffixStrategy
// =============================================================================

func TestSuffixStrategy_DotsToSlashes(t *testing.T) {
	t.Parallel()
	s := SuffixStrategy{Exts: []string{".py"}}
	assert.Equal(t, []string{"utils/helpers.py"}, s.Candidates("utils.helpers", ".py"))
}

func TestSuffixStrategy_RelativePrefixesStripped(t *testing.T) {
	t.Parallel()
	s := SuffixStrategy{Exts: []string{".js"}}
	assert.Equal(t, []string{"lib/math.js"}, s.Candidates("./lib/math", ".js"))
	assert.Equal(t, []string{"lib/math.js"}, s.Candidates("../lib/math", ".js"))
	assert.Nil(t, s.Candidates("./", ".js"))
}

func TestSuffixStrategy_KnownExtensionKeptAsIs(t *testing.T) {
	t.Parallel()
	s := SuffixStrategy{Exts: []string{".js", ".ts"}}
	assert.Equal(t, []string{"styles/app.css"}, s.Candidates("./styles/app.css", ".js"))
}

func TestSuffixStrategy_ImporterExtensionAppendedOnce(t *testing.T) {
	t.Parallel()
	s := SuffixStrategy{Exts: []string{".ts", ".tsx"}}
	got := s.Candidates("components/button", ".ts")
	assert.Equal(t, []string{"components/button.ts", "components/button.tsx"}, got)
}

// =============================================================================
// Resolver
// =============================================================================

func TestResolve_SameModulePreferred(t *testing.T) {
	t.Parallel()

	// Two files named util.py exist; the importer's own module must win.
	modules := ModuleMap{
		"app": {
			pyRecord("app/main.py", "util"),
			pyRecord("app/util.py"),
		},
		"lib": {
			pyRecord("lib/util.py"),
		},
	}

	g := NewResolver(modules).Resolve()
	assert.True(t, g.HasEdge("app/main.py", "app/util.py"))
	assert.False(t, g.HasEdge("app/main.py", "lib/util.py"))
}

func TestResolve_CrossModuleFallback(t *testing.T) {
	t.Parallel()

	modules := ModuleMap{
		"app": {pyRecord("app/main.py", "shared.config")},
		"lib": {pyRecord("lib/shared/config.py")},
	}

	r := NewResolver(modules)
	g := r.Resolve()
	assert.True(t, g.HasEdge("app/main.py", "lib/shared/config.py"))
	assert.Empty(t, r.Unresolved)
}

func TestResolve_ExternalImportUnresolved(t *testing.T) {
	t.Parallel()

	modules := ModuleMap{
		".": {pyRecord("main.py", "numpy", "helper")},
	}
	modules["."] = append(modules["."], pyRecord("helper.py"))

	r := NewResolver(modules)
	g := r.Resolve()

	assert.True(t, g.HasEdge("main.py", "helper.py"))
	require.Len(t, r.Unresolved, 1)
	assert.Equal(t, "numpy", r.Unresolved[0].Specifier)
	assert.Equal(t, "main.py", r.Unresolved[0].Importer)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestResolve_NoSelfImport(t *testing.T) {
	t.Parallel()

	// "import util" inside util.py must not produce util -> util.
	modules := ModuleMap{
		".": {pyRecord("util.py", "util")},
	}
	r := NewResolver(modules)
	g := r.Resolve()
	assert.False(t, g.HasEdge("util.py", "util.py"))
	assert.Len(t, r.Unresolved, 1)
}

func TestResolve_SuffixNeedsSegmentBoundary(t *testing.T) {
	t.Parallel()

	// "xb.py" must not satisfy the candidate "b.py".
	modules := ModuleMap{
		".": {
			pyRecord("a.py", "b"),
			pyRecord("xb.py"),
		},
	}
	r := NewResolver(modules)
	g := r.Resolve()
	assert.Equal(t, 0, g.EdgeCount())
	assert.Len(t, r.Unresolved, 1)
}

func TestResolve_DuplicateImportsOneEdge(t *testing.T) {
	t.Parallel()

	modules := ModuleMap{
		".": {
			pyRecord("a.py", "b", "b"),
			pyRecord("b.py"),
		},
	}
	g := NewResolver(modules).Resolve()
	assert.Equal(t, 1, g.EdgeCount())
}

func TestResolve_CyclesAllowed(t *testing.T) {
	t.Parallel()

	modules := ModuleMap{
		".": {
			pyRecord("a.py", "b"),
			pyRecord("b.py", "a"),
		},
	}
	g := NewResolver(modules).Resolve()
	assert.True(t, g.HasEdge("a.py", "b.py"))
	assert.True(t, g.HasEdge("b.py", "a.py"))
}

func TestResolve_IsolatedNodesKept(t *testing.T) {
	t.Parallel()

	modules := ModuleMap{
		".": {
			pyRecord("alone.py"),
			pyRecord("also_alone.py"),
		},
	}
	g := NewResolver(modules).Resolve()
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestResolve_DeterministicCrossModuleOrder(t *testing.T) {
	t.Parallel()

	// Ambiguous cross-module target: the lexicographically first module wins,
	// every run.
	modules := ModuleMap{
		"app":  {pyRecord("app/main.py", "util")},
		"zlib": {pyRecord("zlib/util.py")},
		"alib": {pyRecord("alib/util.py")},
	}
	for range 10 {
		g := NewResolver(modules).Resolve()
		assert.True(t, g.HasEdge("app/main.py", "alib/util.py"))
		assert.False(t, g.HasEdge("app/main.py", "zlib/util.py"))
	}
}

func TestResolve_CustomStrategy(t *testing.T) {
	t.Parallel()

	modules := ModuleMap{
		".": {
			pyRecord("main.py", "pkg:helper"),
			pyRecord("pkg/helper.py"),
		},
	}
	r := NewResolver(modules)
	r.RegisterStrategy("python", colonStrategy{})
	g := r.Resolve()
	assert.True(t, g.HasEdge("main.py", "pkg/helper.py"))
}

type colonStrategy struct{}

func (colonStrategy) Candidates(specifier, importerExt string) []string {
	return []string{strings.ReplaceAll(specifier, ":", "/") + importerExt}
}

// =============================================================================
// Graph artifacts
// =============================================================================

func TestGraph_WriteJSON(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.AddNode("b.py", "python")
	g.AddNode("a.py", "python")
	g.AddEdge("a.py", "b.py")

	var buf strings.Builder
	require.NoError(t, g.WriteJSON(&buf))

	out := buf.String()
	assert.Contains(t, out, `"nodes"`)
	assert.Contains(t, out, `"edges"`)
	// Sorted output: a.py before b.py.
	assert.Less(t, strings.Index(out, "a.py"), strings.Index(out, "b.py"))
}

func TestGraph_WriteDOT(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.AddNode("a.py", "python")
	g.AddNode("b.py", "python")
	g.AddEdge("a.py", "b.py")

	var buf strings.Builder
	require.NoError(t, g.WriteDOT(&buf, "dependency_graph"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph dependency_graph {"))
	assert.Contains(t, out, `"a.py" -> "b.py";`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
}
