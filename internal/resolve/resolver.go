package resolve

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jward/understory/internal/classify"
	"github.com/jward/understory/internal/record"
)

// ModuleMap is the complete per-module record grouping produced by the
// analysis phase. The resolver requires the whole map up front: an import
// may resolve into any module, not just the importer's.
type ModuleMap map[string][]*record.Record

// Strategy derives candidate relative paths for a raw import specifier.
// Strategies are keyed by the importer's language so a language's real
// module-resolution algorithm can be substituted without touching the
// scheduler or cache.
type Strategy interface {
	Candidates(specifier, importerExt string) []string
}

// SuffixStrategy is the default heuristic: specifier separators become
// path separators and the language's known extensions (plus the importer's
// own extension) are appended. It does not disambiguate ties by proximity.
type SuffixStrategy struct {
	Exts []string
}

func (s SuffixStrategy) Candidates(specifier, importerExt string) []string {
	spec := specifier
	for strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		spec = strings.TrimPrefix(spec, "./")
		spec = strings.TrimPrefix(spec, "../")
	}
	if spec == "" {
		return nil
	}

	// Specifiers that already name a file keep their extension.
	if ext := classify.Ext(spec); ext != "" {
		if _, known := classify.LanguageForFile(spec); known {
			return []string{spec}
		}
	}

	base := strings.ReplaceAll(spec, ".", "/")
	exts := append(append([]string{}, s.Exts...), importerExt)
	seen := make(map[string]bool, len(exts))
	candidates := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		candidates = append(candidates, base+ext)
	}
	return candidates
}

// UnresolvedImport records a specifier that matched no file in the tree.
// External and third-party imports always land here; only intra-repo edges
// are modeled.
type UnresolvedImport struct {
	Specifier string `json:"specifier"`
	Importer  string `json:"importer"`
}

// Resolver builds the dependency graph from a completed module map.
type Resolver struct {
	modules    ModuleMap
	strategies map[string]Strategy

	// Unresolved accumulates specifiers that produced no edge.
	Unresolved []UnresolvedImport
}

// NewResolver creates a resolver over the completed module map.
func NewResolver(modules ModuleMap) *Resolver {
	return &Resolver{
		modules:    modules,
		strategies: make(map[string]Strategy),
	}
}

// RegisterStrategy substitutes the resolution strategy for one language.
func (r *Resolver) RegisterStrategy(language string, s Strategy) {
	r.strategies[language] = s
}

func (r *Resolver) strategyFor(language string) Strategy {
	if s, ok := r.strategies[language]; ok {
		return s
	}
	return SuffixStrategy{Exts: classify.ExtensionsForLanguage(language)}
}

// Resolve walks every record with a non-empty import list and emits one
// directed edge per resolved specifier. Same-module matches win; otherwise
// all modules are scanned in sorted order so cross-module ties break
// deterministically.
func (r *Resolver) Resolve() *Graph {
	graph := NewGraph()

	moduleKeys := make([]string, 0, len(r.modules))
	for m := range r.modules {
		moduleKeys = append(moduleKeys, m)
	}
	sort.Strings(moduleKeys)

	// All nodes first: isolated files stay in the graph.
	for _, m := range moduleKeys {
		for _, rec := range r.modules[m] {
			graph.AddNode(rec.FilePath, rec.Language)
		}
	}

	for _, m := range moduleKeys {
		for _, rec := range r.modules[m] {
			imports := rec.Analysis.Imports()
			if len(imports) == 0 {
				continue
			}
			strategy := r.strategyFor(rec.Language)
			for _, specifier := range imports {
				candidates := strategy.Candidates(specifier, classify.Ext(rec.FilePath))
				target := r.lookup(m, moduleKeys, rec.FilePath, candidates)
				if target == "" {
					r.Unresolved = append(r.Unresolved, UnresolvedImport{Specifier: specifier, Importer: rec.FilePath})
					logrus.WithFields(logrus.Fields{
						"specifier": specifier,
						"importer":  rec.FilePath,
					}).Warn("unresolved import")
					continue
				}
				graph.AddEdge(rec.FilePath, target)
			}
		}
	}
	return graph
}

// lookup searches the importer's module first, then all modules in sorted
// order. First suffix match wins.
func (r *Resolver) lookup(module string, moduleKeys []string, importer string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	if target := r.matchIn(r.modules[module], importer, candidates); target != "" {
		return target
	}
	for _, m := range moduleKeys {
		if m == module {
			continue
		}
		if target := r.matchIn(r.modules[m], importer, candidates); target != "" {
			return target
		}
	}
	return ""
}

func (r *Resolver) matchIn(records []*record.Record, importer string, candidates []string) string {
	for _, rec := range records {
		if rec.FilePath == importer {
			continue // a file never imports itself
		}
		for _, cand := range candidates {
			if suffixMatch(rec.FilePath, cand) {
				return rec.FilePath
			}
		}
	}
	return ""
}

// suffixMatch reports whether path ends with cand at a path-segment
// boundary, so "xb.py" never matches the candidate "b.py".
func suffixMatch(path, cand string) bool {
	if path == cand {
		return true
	}
	return strings.HasSuffix(path, "/"+cand)
}
