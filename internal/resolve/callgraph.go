package resolve

import (
	"path/filepath"
	"sort"
	"strings"
)

// BuildCallGraph aggregates per-record call facts into a name-level graph:
// one node per function name, one directed edge per caller/callee pair.
// Module-level call sites are attributed to the file's module name so the
// graph keeps an origin for top-level calls. Like the dependency graph it
// may be cyclic (recursion, mutual calls).
func BuildCallGraph(modules ModuleMap) *Graph {
	graph := NewGraph()

	moduleKeys := make([]string, 0, len(modules))
	for m := range modules {
		moduleKeys = append(moduleKeys, m)
	}
	sort.Strings(moduleKeys)

	for _, m := range moduleKeys {
		for _, rec := range modules[m] {
			for _, c := range rec.Analysis.Calls() {
				if c.Callee == "" {
					continue
				}
				caller := c.Caller
				if caller == "" {
					caller = moduleName(rec.FilePath)
				}
				graph.AddNode(caller, rec.Language)
				graph.AddNode(c.Callee, rec.Language)
				graph.AddEdge(caller, c.Callee)
			}
		}
	}
	return graph
}

// moduleName is the file's base name without extension, standing in for
// the module scope of top-level call sites.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
