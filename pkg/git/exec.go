package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"

	"gitpersona/pkg/identity"
)

// %H, %an, %ae, %cn, %ce; each field NUL terminated.
const logFormat = "--format=%H%x00%an%x00%ae%x00%cn%x00%ce%x00"

const fieldsPerCommit = 5

// ExecExtractor runs the git binary and parses its log output.
type ExecExtractor struct {
	Binary string
	Mode   HistoryMode
}

func (e ExecExtractor) args(path string) []string {
	args := []string{"-C", path, "log", "--no-color", logFormat}
	if e.Mode != HistoryDefault {
		args = append(args, "--all")
	}
	return args
}

func (e ExecExtractor) Records(ctx context.Context, path, origin string) iter.Seq2[identity.CommitRecord, error] {
	return func(yield func(identity.CommitRecord, error) bool) {
		bin := e.Binary
		if bin == "" {
			bin = defaultBinary
		}

		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, bin, e.args(path)...)
		cmd.Stderr = &stderr
		cmd.Env = append(os.Environ(), "LC_ALL=C")

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(identity.CommitRecord{}, err)
			return
		}
		if err := cmd.Start(); err != nil {
			yield(identity.CommitRecord{}, fmt.Errorf("failed to start %s: %w", bin, err))
			return
		}

		for rec, err := range ParseLog(stdout, origin) {
			if err != nil {
				cmd.Process.Kill()
				cmd.Wait()
				yield(identity.CommitRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				cmd.Process.Kill()
				cmd.Wait()
				return
			}
		}

		if err := cmd.Wait(); err != nil {
			if isEmptyHistory(stderr.String()) {
				return
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				err = SubprocessError{
					ExitCode: exitErr.ExitCode(),
					Stderr:   strings.TrimSpace(stderr.String()),
					Err:      err,
				}
			}
			yield(identity.CommitRecord{}, err)
		}
	}
}

// isEmptyHistory matches the message git prints for a branch without commits.
func isEmptyHistory(stderr string) bool {
	return strings.Contains(stderr, "does not have any commits yet")
}

// ParseLog turns the NUL delimited output of git log into records. A commit
// cut short at the end of the stream is padded with empty fields.
func ParseLog(r io.Reader, origin string) iter.Seq2[identity.CommitRecord, error] {
	return func(yield func(identity.CommitRecord, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		scanner.Split(splitNull)

		fields := make([]string, 0, fieldsPerCommit)
		emit := func() bool {
			for len(fields) < fieldsPerCommit {
				fields = append(fields, "")
			}
			rec := identity.CommitRecord{
				Hash:           fields[0],
				Repository:     origin,
				AuthorName:     fields[1],
				AuthorEmail:    fields[2],
				CommitterName:  fields[3],
				CommitterEmail: fields[4],
			}
			fields = fields[:0]
			return yield(rec, nil)
		}

		for scanner.Scan() {
			field := scanner.Text()
			if len(fields) == 0 {
				// Commits are separated by a newline after the last NUL.
				field = strings.TrimLeft(field, "\n")
				if field == "" {
					continue
				}
			}
			fields = append(fields, field)
			if len(fields) == fieldsPerCommit && !emit() {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(identity.CommitRecord{}, fmt.Errorf("error while scanning git log: %w", err))
			return
		}
		if len(fields) > 0 {
			emit()
		}
	}
}

func splitNull(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
