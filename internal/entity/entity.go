// Package entity defines the entity-extraction collaborator consumed by
// the analysis pipeline. The extractor is constructed once and injected
// into every analyzer invocation; there is no package-level singleton.
package entity

import "context"

// Entity is a labeled span found in file content.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Extractor turns raw text into labeled entities. Implementations may call
// out to a remote model; failures are annotation failures, never pipeline
// faults.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}
