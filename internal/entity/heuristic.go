package entity

import (
	"context"
	"regexp"
)

// heuristicPatterns map a label to the pattern that finds it. Lexical by
// design: the default extractor must work offline.
var heuristicPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"URL", regexp.MustCompile(`https?://[^\s"'<>)\]]+`)},
	{"EMAIL", regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{"VERSION", regexp.MustCompile(`\bv?\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?\b`)},
	{"ENV_VAR", regexp.MustCompile(`\b[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)+\b`)},
}

// maxEntitiesPerLabel bounds output on pathological inputs (minified
// bundles, generated code).
const maxEntitiesPerLabel = 50

// Heuristic is the default, offline entity extractor.
type Heuristic struct{}

// NewHeuristic returns the regex-based extractor.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Extract finds URL, email, version, and environment-variable spans.
// Duplicate spans are reported once.
func (h *Heuristic) Extract(_ context.Context, text string) ([]Entity, error) {
	var out []Entity
	seen := make(map[Entity]bool)
	for _, p := range heuristicPatterns {
		matches := p.re.FindAllString(text, maxEntitiesPerLabel)
		for _, m := range matches {
			e := Entity{Text: m, Label: p.label}
			if seen[e] {
				continue
			}
			seen[e] = true
			out = append(out, e)
		}
	}
	return out, nil
}
