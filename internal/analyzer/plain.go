package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/jward/understory/internal/record"
)

// jsonAnalyzer parses JSON files and stores the decoded value.
type jsonAnalyzer struct{}

func NewJSON() Analyzer { return jsonAnalyzer{} }

func (jsonAnalyzer) Name() string { return "json" }

func (jsonAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	var data any
	if err := json.Unmarshal(req.Content, &data); err != nil {
		return nil, fmt.Errorf("parse json %s: %w", req.Path, err)
	}
	return newRecord(req, record.Facts{"data": data}), nil
}

// yamlAnalyzer parses YAML files and stores the decoded value.
type yamlAnalyzer struct{}

func NewYAML() Analyzer { return yamlAnalyzer{} }

func (yamlAnalyzer) Name() string { return "yaml" }

func (yamlAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	var data any
	if err := yaml.Unmarshal(req.Content, &data); err != nil {
		return nil, fmt.Errorf("parse yaml %s: %w", req.Path, err)
	}
	return newRecord(req, record.Facts{"data": data}), nil
}

var (
	mdHeadingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	mdLinkRe    = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
)

// markdownAnalyzer extracts headings and link targets.
type markdownAnalyzer struct{}

func NewMarkdown() Analyzer { return markdownAnalyzer{} }

func (markdownAnalyzer) Name() string { return "markdown" }

func (markdownAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	headings := []string{}
	for _, m := range mdHeadingRe.FindAllStringSubmatch(string(req.Content), -1) {
		headings = append(headings, strings.TrimSpace(m[2]))
	}
	links := []string{}
	for _, m := range mdLinkRe.FindAllStringSubmatch(string(req.Content), -1) {
		links = append(links, m[1])
	}
	return newRecord(req, record.Facts{"headings": headings, "links": links}), nil
}

// htmlAnalyzer tokenizes markup and collects tag names and attributes.
type htmlAnalyzer struct{}

func NewHTML() Analyzer { return htmlAnalyzer{} }

func (htmlAnalyzer) Name() string { return "html" }

func (htmlAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	z := html.NewTokenizer(bytes.NewReader(req.Content))
	tags := []string{}
	attrs := map[string][]string{}
	comments := []string{}
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return nil, fmt.Errorf("parse html %s: %w", req.Path, z.Err())
			}
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tags = append(tags, tok.Data)
			for _, a := range tok.Attr {
				attrs[tok.Data] = append(attrs[tok.Data], a.Key)
			}
		case html.CommentToken:
			comments = append(comments, strings.TrimSpace(z.Token().Data))
		}
	}
	return newRecord(req, record.Facts{
		"tags":       tags,
		"attributes": attrs,
		"comments":   comments,
	}), nil
}

// xmlAnalyzer collects element names from XML documents.
type xmlAnalyzer struct{}

func NewXML() Analyzer { return xmlAnalyzer{} }

func (xmlAnalyzer) Name() string { return "xml" }

func (xmlAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(req.Content))
	dec.Strict = false
	tags := []string{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml %s: %w", req.Path, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			tags = append(tags, start.Name.Local)
		}
	}
	return newRecord(req, record.Facts{"tags": tags}), nil
}

var cssSelectorRe = regexp.MustCompile(`(?m)^\s*([^{}/@][^{]*?)\s*\{`)

// cssAnalyzer extracts rule selectors; stylesheets may also be linted.
type cssAnalyzer struct {
	linter *LintStep
}

func NewCSS(linter *LintStep) Analyzer { return &cssAnalyzer{linter: linter} }

func (*cssAnalyzer) Name() string { return "css" }

func (c *cssAnalyzer) Analyze(ctx context.Context, req Request) (*record.Record, error) {
	selectors := []string{}
	for _, m := range cssSelectorRe.FindAllStringSubmatch(string(req.Content), -1) {
		selectors = append(selectors, strings.TrimSpace(m[1]))
	}
	facts := record.Facts{"rules": selectors}
	if c.linter != nil {
		if diags, err := c.linter.Run(ctx, req.Path); err != nil {
			lintSkipped("css", req.Path, err)
		} else {
			facts["lint_results"] = diags
		}
	}
	return newRecord(req, facts), nil
}

// textAnalyzer records plain content with no structural facts.
type textAnalyzer struct{}

func NewText() Analyzer { return textAnalyzer{} }

func (textAnalyzer) Name() string { return "text" }

func (textAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	return newRecord(req, record.Facts{}), nil
}

// defaultAnalyzer emits a minimal record for unrecognized types: raw
// content, size, line count, empty facts.
type defaultAnalyzer struct{}

// NewDefault returns the fallback analyzer for unmatched files.
func NewDefault() Analyzer { return defaultAnalyzer{} }

func (defaultAnalyzer) Name() string { return "default" }

func (defaultAnalyzer) Analyze(_ context.Context, req Request) (*record.Record, error) {
	return newRecord(req, record.Facts{}), nil
}
