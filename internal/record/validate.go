package record

import (
	"errors"
	"fmt"
)

// Validation failure classes. A failed record is discarded and logged;
// validation never aborts the run.
var (
	ErrMissingPath     = errors.New("file_path is empty")
	ErrMissingLanguage = errors.New("language is empty")
	ErrMissingAnalysis = errors.New("analysis map is nil")
	ErrNegativeSize    = errors.New("metadata.size is negative")
	ErrEmptyContent    = errors.New("content is empty")
)

// Validate checks that a record satisfies the persistence contract:
// required fields present, size non-negative. Content may be nil (binary
// files) but not present-and-empty.
func Validate(r *Record) error {
	if r == nil {
		return errors.New("record is nil")
	}
	if r.FilePath == "" {
		return ErrMissingPath
	}
	if r.Language == "" {
		return fmt.Errorf("%s: %w", r.FilePath, ErrMissingLanguage)
	}
	if r.Analysis == nil {
		return fmt.Errorf("%s: %w", r.FilePath, ErrMissingAnalysis)
	}
	if r.Metadata.Size < 0 {
		return fmt.Errorf("%s: %w", r.FilePath, ErrNegativeSize)
	}
	if r.Content != nil && *r.Content == "" && r.Metadata.Size > 0 {
		return fmt.Errorf("%s: %w", r.FilePath, ErrEmptyContent)
	}
	return nil
}
