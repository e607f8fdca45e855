package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jward/understory/internal/classify"
	"github.com/jward/understory/internal/entity"
)

func goSpec() langSpec {
	return langSpec{
		name:     classify.LangGo,
		language: golang.GetLanguage(),
		defsQuery: `
(function_declaration name: (identifier) @function)
(method_declaration name: (field_identifier) @method)
(type_declaration (type_spec name: (type_identifier) @type))
`,
		importsQuery:  `(import_spec path: (interpreted_string_literal) @import)`,
		commentsQuery: `(comment) @comment`,
		callsQuery: `
(call_expression function: (identifier) @callee)
(call_expression function: (selector_expression field: (field_identifier) @callee))
`,
		defNodeKinds: map[string]bool{
			"function_declaration": true,
			"method_declaration":   true,
		},
		branchKinds: map[string]bool{
			"if_statement":                true,
			"for_statement":               true,
			"expression_switch_statement": true,
			"type_switch_statement":       true,
			"select_statement":            true,
		},
	}
}

func pythonSpec() langSpec {
	return langSpec{
		name:     classify.LangPython,
		language: python.GetLanguage(),
		defsQuery: `
(function_definition name: (identifier) @function)
(class_definition name: (identifier) @class)
`,
		importsQuery: `
(import_statement name: (dotted_name) @import)
(import_from_statement module_name: (dotted_name) @import)
`,
		commentsQuery: `(comment) @comment`,
		callsQuery: `
(call function: (identifier) @callee)
(call function: (attribute attribute: (identifier) @callee))
`,
		defNodeKinds: map[string]bool{
			"function_definition": true,
		},
		branchKinds: map[string]bool{
			"if_statement":    true,
			"elif_clause":     true,
			"for_statement":   true,
			"while_statement": true,
			"except_clause":   true,
		},
	}
}

func javascriptSpec() langSpec {
	return langSpec{
		name:     classify.LangJavaScript,
		language: javascript.GetLanguage(),
		defsQuery: `
(function_declaration name: (identifier) @function)
(class_declaration name: (identifier) @class)
(method_definition name: (property_identifier) @method)
`,
		importsQuery:  `(import_statement source: (string) @import)`,
		commentsQuery: `(comment) @comment`,
		callsQuery: `
(call_expression function: (identifier) @callee)
(call_expression function: (member_expression property: (property_identifier) @callee))
`,
		defNodeKinds: map[string]bool{
			"function_declaration": true,
			"method_definition":    true,
		},
		branchKinds: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"for_in_statement":   true,
			"while_statement":    true,
			"switch_case":        true,
			"ternary_expression": true,
		},
	}
}

func typescriptSpec() langSpec {
	return langSpec{
		name:     classify.LangTypeScript,
		language: ts.GetLanguage(),
		defsQuery: `
(function_declaration name: (identifier) @function)
(class_declaration name: (type_identifier) @class)
(method_definition name: (property_identifier) @method)
(interface_declaration name: (type_identifier) @interface)
`,
		importsQuery:  `(import_statement source: (string) @import)`,
		commentsQuery: `(comment) @comment`,
		callsQuery: `
(call_expression function: (identifier) @callee)
(call_expression function: (member_expression property: (property_identifier) @callee))
`,
		defNodeKinds: map[string]bool{
			"function_declaration": true,
			"method_definition":    true,
		},
		branchKinds: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"for_in_statement":   true,
			"while_statement":    true,
			"switch_case":        true,
			"ternary_expression": true,
		},
	}
}

// grammarFor exposes the tree-sitter language for a canonical language
// name. Used by tests and by callers that want to validate queries.
func grammarFor(lang string) (*sitter.Language, bool) {
	switch lang {
	case classify.LangGo:
		return golang.GetLanguage(), true
	case classify.LangPython:
		return python.GetLanguage(), true
	case classify.LangJavaScript:
		return javascript.GetLanguage(), true
	case classify.LangTypeScript:
		return ts.GetLanguage(), true
	default:
		return nil, false
	}
}

// Config wires the collaborators the default registry needs.
type Config struct {
	Extractor entity.Extractor
	Linter    Linter
	// LintTools maps a language to the external lint tool to invoke for it
	// ("python" -> "pylint"). Languages without an entry are not linted.
	LintTools map[string]string
}

// NewRegistry builds the default dispatcher: tree-sitter analyzers for the
// structural languages, lightweight analyzers for markup and data files,
// and a minimal default analyzer for everything else.
func NewRegistry(cfg Config) *Dispatcher {
	d := NewDispatcher(NewDefault(), cfg.Extractor)

	lintStep := func(lang string) *LintStep {
		if cfg.Linter == nil {
			return nil
		}
		tool, ok := cfg.LintTools[lang]
		if !ok {
			return nil
		}
		return &LintStep{Runner: cfg.Linter, Tool: tool}
	}

	structural := map[string]*TreeSitter{
		classify.LangGo:         NewTreeSitter(goSpec(), lintStep(classify.LangGo)),
		classify.LangPython:     NewTreeSitter(pythonSpec(), lintStep(classify.LangPython)),
		classify.LangJavaScript: NewTreeSitter(javascriptSpec(), lintStep(classify.LangJavaScript)),
		classify.LangTypeScript: NewTreeSitter(typescriptSpec(), lintStep(classify.LangTypeScript)),
	}
	for lang, a := range structural {
		for _, ext := range classify.ExtensionsForLanguage(lang) {
			d.Register(ext, a)
		}
	}

	jsonA := NewJSON()
	yamlA := NewYAML()
	mdA := NewMarkdown()
	htmlA := NewHTML()
	cssA := NewCSS(lintStep(classify.LangCSS))
	xmlA := NewXML()
	textA := NewText()

	d.Register(".json", jsonA)
	d.Register(".yaml", yamlA)
	d.Register(".yml", yamlA)
	d.Register(".md", mdA)
	d.Register(".mdx", mdA)
	d.Register(".html", htmlA)
	d.Register(".htm", htmlA)
	d.Register(".vue", htmlA)
	d.Register(".css", cssA)
	d.Register(".scss", cssA)
	d.Register(".sass", cssA)
	d.Register(".xml", xmlA)
	d.Register(".svg", xmlA)
	for _, ext := range []string{".txt", ".rst", ".log", ".ini", ".cfg", ".conf", ".sh", ".sql", ".c", ".h", ".cpp", ".hpp", ".rs", ".java", ".rb", ".php"} {
		d.Register(ext, textA)
	}

	d.RegisterContentType("text/html", htmlA)
	d.RegisterContentType("text/xml", xmlA)
	d.RegisterContentType("application/xml", xmlA)
	d.RegisterContentType("text/plain", textA)

	return d
}
