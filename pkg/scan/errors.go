package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRepositories is returned when a source resolves to nothing to scan.
	ErrNoRepositories = errors.New("no repositories found")
	// ErrAllFailed is returned when every resolved repository was skipped.
	ErrAllFailed = errors.New("no repository could be scanned")
)

// SourceError aborts a run: the source itself could not be resolved.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %s", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// CloneError skips one repository of a batch.
type CloneError struct {
	Origin string
	Err    error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("failed to clone '%s': %s", e.Origin, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// ExtractionError skips a repository whose history could not be read.
type ExtractionError struct {
	Origin string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract metadata for '%s': %s", e.Origin, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
