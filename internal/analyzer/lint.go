package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// Diagnostic is one normalized lint finding.
type Diagnostic struct {
	Rule     string `json:"rule"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Severity string `json:"severity,omitempty"`
}

// Linter invokes an external lint tool against a file. A nonzero exit with
// parseable output still yields diagnostics (linters exit nonzero when they
// find violations); an error means the tool could not run or produced
// garbage.
type Linter interface {
	Run(ctx context.Context, tool, path string) ([]Diagnostic, error)
}

// LintStep binds a Linter to the tool configured for one language.
type LintStep struct {
	Runner Linter
	Tool   string
}

func (s *LintStep) Run(ctx context.Context, path string) ([]Diagnostic, error) {
	return s.Runner.Run(ctx, s.Tool, path)
}

// lintSkipped logs a lint failure as a per-file diagnostic.
func lintSkipped(lang, path string, err error) {
	logrus.WithError(err).WithFields(logrus.Fields{
		"language": lang,
		"path":     path,
	}).Warn("lint skipped")
}

// toolArgs holds the JSON-output flag for known tools. Unknown tools are
// invoked with just the file path.
var toolArgs = map[string][]string{
	"pylint":    {"--output-format=json"},
	"eslint":    {"--format=json"},
	"stylelint": {"--formatter=json"},
}

// ExecLinter runs lint tools as subprocesses.
type ExecLinter struct {
	Timeout time.Duration
}

// NewExecLinter returns a Linter with the given per-invocation timeout.
// Zero means 30 seconds.
func NewExecLinter(timeout time.Duration) *ExecLinter {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ExecLinter{Timeout: timeout}
}

func (l *ExecLinter) Run(ctx context.Context, tool, path string) ([]Diagnostic, error) {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	args := append(append([]string{}, toolArgs[tool]...), path)
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	// A failed run with no output means the tool could not execute at all.
	// Nonzero exit with parseable output is the normal violations-found case.
	if runErr != nil && len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, fmt.Errorf("%s: %w (stderr: %s)", tool, runErr, bytes.TrimSpace(stderr.Bytes()))
	}

	diags, parseErr := parseDiagnostics(stdout.Bytes())
	if parseErr == nil {
		return diags, nil
	}
	if runErr != nil {
		return nil, fmt.Errorf("%s: %w (stderr: %s)", tool, runErr, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil, fmt.Errorf("%s: unparseable output: %w", tool, parseErr)
}

// parseDiagnostics normalizes the JSON shapes pylint, eslint, and
// stylelint emit: either a flat array of findings or an array of per-file
// objects with a nested "messages"/"warnings" array.
func parseDiagnostics(out []byte) ([]Diagnostic, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return []Diagnostic{}, nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, err
	}

	diags := []Diagnostic{}
	for _, item := range raw {
		if nested, ok := nestedFindings(item); ok {
			for _, f := range nested {
				diags = append(diags, toDiagnostic(f))
			}
			continue
		}
		diags = append(diags, toDiagnostic(item))
	}
	return diags, nil
}

func nestedFindings(item map[string]any) ([]map[string]any, bool) {
	for _, key := range []string{"messages", "warnings"} {
		arr, ok := item[key].([]any)
		if !ok {
			continue
		}
		var out []map[string]any
		for _, e := range arr {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	}
	return nil, false
}

func toDiagnostic(m map[string]any) Diagnostic {
	d := Diagnostic{}
	for _, key := range []string{"symbol", "message-id", "ruleId", "rule"} {
		if s, ok := m[key].(string); ok && s != "" {
			d.Rule = s
			break
		}
	}
	if s, ok := m["message"].(string); ok {
		d.Message = s
	} else if s, ok := m["text"].(string); ok {
		d.Message = s
	}
	if n, ok := m["line"].(float64); ok {
		d.Line = int(n)
	}
	for _, key := range []string{"type", "severity"} {
		switch v := m[key].(type) {
		case string:
			d.Severity = v
		case float64:
			d.Severity = fmt.Sprintf("%d", int(v))
		}
		if d.Severity != "" {
			break
		}
	}
	return d
}
