package git

import (
	"context"
	"fmt"
	"iter"

	"gitpersona/pkg/identity"
)

const (
	tempDirPrefix = "clone-*"
	defaultBinary = "git"
)

// HistoryMode selects which commits of a repository are listed.
type HistoryMode string

const (
	// HistoryAll walks HEAD and every ref under refs/.
	HistoryAll HistoryMode = "all"
	// HistoryDefault walks HEAD only.
	HistoryDefault HistoryMode = "default"
)

func ParseHistoryMode(s string) (HistoryMode, error) {
	switch HistoryMode(s) {
	case HistoryAll, "":
		return HistoryAll, nil
	case HistoryDefault:
		return HistoryDefault, nil
	}
	return "", fmt.Errorf("unknown history mode %q", s)
}

// Extractor lists the commits of a local repository. The returned sequence
// is single use; an error ends it.
type Extractor interface {
	Records(ctx context.Context, path, origin string) iter.Seq2[identity.CommitRecord, error]
}

type CloneResult struct {
	Origin string
	Path   string
	Error  error
}

// SubprocessError is returned when the git binary exits unsuccessfully.
type SubprocessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e SubprocessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("git exited with code %d", e.ExitCode)
}

func (e SubprocessError) Unwrap() error {
	return e.Err
}
