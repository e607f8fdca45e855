package understory

import (
	"github.com/jward/understory/internal/analyzer"
	"github.com/jward/understory/internal/resolve"
)

// Stats aggregates the snapshot: totals plus per-language and per-module
// breakdowns, and lint violation tallies across all records.
type Stats struct {
	TotalFiles int   `json:"total_files"`
	TotalLOC   int   `json:"total_loc"`
	TotalSize  int64 `json:"total_size"`

	FilesByLanguage map[string]int   `json:"files_by_language"`
	LOCByLanguage   map[string]int   `json:"loc_by_language"`
	SizeByLanguage  map[string]int64 `json:"size_by_language"`
	FilesByModule   map[string]int   `json:"files_by_module"`

	LintViolations map[string]int `json:"lint_violations"`
}

// ComputeStats walks the completed module map. Runs after the analysis
// barrier, so no locking is needed.
func ComputeStats(modules resolve.ModuleMap) *Stats {
	stats := &Stats{
		FilesByLanguage: make(map[string]int),
		LOCByLanguage:   make(map[string]int),
		SizeByLanguage:  make(map[string]int64),
		FilesByModule:   make(map[string]int),
		LintViolations:  make(map[string]int),
	}

	for module, recs := range modules {
		stats.FilesByModule[module] = len(recs)
		for _, r := range recs {
			stats.TotalFiles++
			stats.TotalLOC += r.Metadata.LOC
			stats.TotalSize += r.Metadata.Size

			stats.FilesByLanguage[r.Language]++
			stats.LOCByLanguage[r.Language] += r.Metadata.LOC
			stats.SizeByLanguage[r.Language] += r.Metadata.Size

			tallyLint(stats.LintViolations, r.Analysis["lint_results"])
		}
	}
	return stats
}

// tallyLint counts findings by rule. Handles both freshly built
// []Diagnostic values and []any values restored from the cache.
func tallyLint(tally map[string]int, results any) {
	switch diags := results.(type) {
	case []analyzer.Diagnostic:
		for _, d := range diags {
			tally[ruleOrUnknown(d.Rule)]++
		}
	case []any:
		for _, e := range diags {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			rule, _ := m["rule"].(string)
			tally[ruleOrUnknown(rule)]++
		}
	}
}

func ruleOrUnknown(rule string) string {
	if rule == "" {
		return "unknown"
	}
	return rule
}
