// Package record defines the normalized per-file analysis record and the
// append-only JSON-Lines store that persists records grouped by module.
package record

// Record is the normalized analysis result for a single source file.
// Immutable once persisted; a record is produced either by an analyzer or
// restored from the content cache.
type Record struct {
	FilePath      string   `json:"file_path"`
	Language      string   `json:"language"`
	Content       *string  `json:"content"` // nil for binary or unreadable files
	Analysis      Facts    `json:"analysis"`
	Metadata      Metadata `json:"metadata"`
	ModulePath    string   `json:"module_path"`
	Documentation string   `json:"documentation,omitempty"`
}

// Metadata holds size-level facts about the file.
type Metadata struct {
	LOC  int   `json:"loc"`
	Size int64 `json:"size"`
}

// Definition is a named declaration found by a structural analyzer.
type Definition struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"` // function, method, class, type
	Params []string `json:"params,omitempty"`
	Line   int      `json:"line"`
}

// Call is one call site found by a structural analyzer. Caller is the
// enclosing function or method; empty means module level.
type Call struct {
	Caller string `json:"caller,omitempty"`
	Callee string `json:"callee"`
	Line   int    `json:"line"`
}

// Facts is the analyzer-specific structural-facts map. Keys vary by
// analyzer; well-known keys are "definitions", "imports", "comments",
// "calls", "entities", "complexity", "lint_results", "function_count",
// "comment_density".
type Facts map[string]any

// Strings returns the value under key as a string slice. Handles both
// freshly built []string values and []any values restored from JSON.
func (f Facts) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Imports returns the raw import specifiers recorded by the analyzer.
func (f Facts) Imports() []string {
	return f.Strings("imports")
}

// Calls returns the call sites recorded by the analyzer. Handles both
// freshly built []Call values and []any values restored from JSON.
func (f Facts) Calls() []Call {
	switch v := f["calls"].(type) {
	case []Call:
		return v
	case []any:
		out := make([]Call, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			c := Call{}
			c.Caller, _ = m["caller"].(string)
			c.Callee, _ = m["callee"].(string)
			if n, ok := m["line"].(float64); ok {
				c.Line = int(n)
			}
			out = append(out, c)
		}
		return out
	default:
		return nil
	}
}

// Len returns the length of the slice stored under key, or 0.
func (f Facts) Len(key string) int {
	switch v := f[key].(type) {
	case []string:
		return len(v)
	case []any:
		return len(v)
	case []Definition:
		return len(v)
	case []Call:
		return len(v)
	default:
		return 0
	}
}

// DefinitionCount counts definitions of the given kinds. Empty kinds
// counts everything under "definitions".
func (f Facts) DefinitionCount(kinds ...string) int {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	match := func(kind string) bool {
		return len(want) == 0 || want[kind]
	}

	n := 0
	switch defs := f["definitions"].(type) {
	case []Definition:
		for _, d := range defs {
			if match(d.Kind) {
				n++
			}
		}
	case []any:
		for _, e := range defs {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			kind, _ := m["kind"].(string)
			if match(kind) {
				n++
			}
		}
	}
	return n
}
