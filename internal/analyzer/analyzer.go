// Package analyzer routes classified files to per-language Analyzer
// capabilities and enriches their results. Analyzers turn raw content into
// structural facts; the dispatcher isolates their failures so a bad file
// can only ever cost its own record.
package analyzer

import (
	"bytes"
	"context"

	"github.com/jward/understory/internal/record"
)

// Request carries everything an analyzer invocation needs. Content is the
// full file body; Size is the on-disk byte size.
type Request struct {
	Path       string
	ModulePath string
	Language   string
	Content    []byte
	Size       int64
}

// Analyzer is the pluggable per-language capability contract. An analyzer
// may invoke an external lint tool or other collaborators; any failure it
// returns (or panic it raises) is converted into a skip by the dispatcher.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*record.Record, error)
}

// newRecord builds the record skeleton every analyzer shares: content,
// line count, size, module path. Facts are the analyzer's contribution.
func newRecord(req Request, facts record.Facts) *record.Record {
	content := string(req.Content)
	return &record.Record{
		FilePath: req.Path,
		Language: req.Language,
		Content:  &content,
		Analysis: facts,
		Metadata: record.Metadata{
			LOC:  bytes.Count(req.Content, []byte{'\n'}) + 1,
			Size: req.Size,
		},
		ModulePath: req.ModulePath,
	}
}
