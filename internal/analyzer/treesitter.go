package analyzer

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/understory/internal/record"
)

// langSpec bundles the grammar and queries that drive structural
// extraction for one language.
type langSpec struct {
	name     string
	language *sitter.Language

	// defsQuery captures named declarations; the capture name is the
	// definition kind ("function", "method", "class", "type", "interface").
	defsQuery string

	// importsQuery captures raw import specifiers under @import.
	importsQuery string

	// commentsQuery captures comments under @comment.
	commentsQuery string

	// callsQuery captures the called name at each call site under @callee.
	callsQuery string

	// defNodeKinds are the node types that open a function or method body,
	// used to find a call site's enclosing definition.
	defNodeKinds map[string]bool

	// branchKinds are node types counted toward the complexity score.
	branchKinds map[string]bool
}

// TreeSitter is a structural analyzer backed by a tree-sitter grammar.
// A fresh parser is created per Analyze call so concurrent workers never
// share parser state.
type TreeSitter struct {
	spec   langSpec
	linter *LintStep
}

// NewTreeSitter builds the analyzer for a language spec. linter may be nil.
func NewTreeSitter(spec langSpec, linter *LintStep) *TreeSitter {
	return &TreeSitter{spec: spec, linter: linter}
}

func (t *TreeSitter) Name() string {
	return t.spec.name
}

// Analyze parses the file and extracts definitions, imports, comments, and
// a complexity score. A parse failure is an analyzer error, which the
// dispatcher converts into a skip.
func (t *TreeSitter) Analyze(ctx context.Context, req Request) (*record.Record, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(t.spec.language)
	tree, err := parser.ParseCtx(ctx, nil, req.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.Path, err)
	}
	root := tree.RootNode()

	defs, err := t.extractDefinitions(root, req.Content)
	if err != nil {
		return nil, err
	}
	imports, err := t.captureStrings(t.spec.importsQuery, "import", root, req.Content, true)
	if err != nil {
		return nil, err
	}
	comments, err := t.captureStrings(t.spec.commentsQuery, "comment", root, req.Content, false)
	if err != nil {
		return nil, err
	}
	calls, err := t.extractCalls(root, req.Content)
	if err != nil {
		return nil, err
	}

	facts := record.Facts{
		"definitions": defs,
		"imports":     imports,
		"comments":    comments,
		"calls":       calls,
		"complexity":  complexity(root, t.spec.branchKinds),
	}

	if t.linter != nil {
		if diags, err := t.linter.Run(ctx, req.Path); err != nil {
			// Missing or failing lint tool is a diagnostic, not a fault.
			lintSkipped(t.spec.name, req.Path, err)
		} else {
			facts["lint_results"] = diags
		}
	}

	return newRecord(req, facts), nil
}

// extractDefinitions runs the definitions query; the capture name becomes
// the definition kind.
func (t *TreeSitter) extractDefinitions(root *sitter.Node, src []byte) ([]record.Definition, error) {
	if t.spec.defsQuery == "" {
		return []record.Definition{}, nil
	}
	q, err := sitter.NewQuery([]byte(t.spec.defsQuery), t.spec.language)
	if err != nil {
		return nil, fmt.Errorf("definitions query: %w", err)
	}
	defer q.Close()

	defs := []record.Definition{}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			kind := q.CaptureNameForId(c.Index)
			defs = append(defs, record.Definition{
				Name: c.Node.Content(src),
				Kind: kind,
				Line: int(c.Node.StartPoint().Row) + 1,
			})
		}
	}
	return defs, nil
}

// extractCalls runs the calls query and pairs each call site with its
// enclosing definition.
func (t *TreeSitter) extractCalls(root *sitter.Node, src []byte) ([]record.Call, error) {
	if t.spec.callsQuery == "" {
		return []record.Call{}, nil
	}
	q, err := sitter.NewQuery([]byte(t.spec.callsQuery), t.spec.language)
	if err != nil {
		return nil, fmt.Errorf("calls query: %w", err)
	}
	defer q.Close()

	calls := []record.Call{}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if q.CaptureNameForId(c.Index) != "callee" {
				continue
			}
			calls = append(calls, record.Call{
				Caller: t.enclosingDefinition(c.Node, src),
				Callee: c.Node.Content(src),
				Line:   int(c.Node.StartPoint().Row) + 1,
			})
		}
	}
	return calls, nil
}

// enclosingDefinition walks up from a call site to the nearest function or
// method definition and returns its name. Empty means module level.
func (t *TreeSitter) enclosingDefinition(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !t.spec.defNodeKinds[p.Type()] {
			continue
		}
		if name := p.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return ""
}

// captureStrings collects text for a single-capture query. unquote strips
// surrounding string-literal quotes (import paths in Go/JS are quoted).
func (t *TreeSitter) captureStrings(querySrc, capture string, root *sitter.Node, src []byte, unquote bool) ([]string, error) {
	if querySrc == "" {
		return []string{}, nil
	}
	q, err := sitter.NewQuery([]byte(querySrc), t.spec.language)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", capture, err)
	}
	defer q.Close()

	out := []string{}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if q.CaptureNameForId(c.Index) != capture {
				continue
			}
			text := c.Node.Content(src)
			if unquote {
				text = strings.Trim(text, "\"'`")
			}
			text = strings.TrimSpace(text)
			if text != "" {
				out = append(out, text)
			}
		}
	}
	return out, nil
}

// complexity is 1 plus the number of branch nodes in the tree. A lexical
// approximation of cyclomatic complexity, not a compiler metric.
func complexity(root *sitter.Node, branchKinds map[string]bool) int {
	score := 1
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if branchKinds[n.Type()] {
			score++
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return score
}
