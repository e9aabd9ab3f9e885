package git_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitpersona/pkg/git"
	"gitpersona/pkg/git/gittest"
	"gitpersona/pkg/identity"
)

const logDump = "1111\x00Alice\x00alice@work.com\x00Alice\x00alice@personal.com\x00\n" +
	"2222\x00\x00ghost@x.com\x00Bob\x00bob@x.com\x00\n" +
	"3333\x00Carol\x00\x00\x00\x00\n"

func TestParseLog(t *testing.T) {
	t.Parallel()

	records := collect(t, git.ParseLog(strings.NewReader(logDump), "repo"))
	assert.Equal(t, []identity.CommitRecord{
		{
			Hash: "1111", Repository: "repo",
			AuthorName: "Alice", AuthorEmail: "alice@work.com",
			CommitterName: "Alice", CommitterEmail: "alice@personal.com",
		},
		{
			Hash: "2222", Repository: "repo",
			AuthorName: "", AuthorEmail: "ghost@x.com",
			CommitterName: "Bob", CommitterEmail: "bob@x.com",
		},
		{
			Hash: "3333", Repository: "repo",
			AuthorName: "Carol",
		},
	}, records)
}

func TestParseLogTruncated(t *testing.T) {
	t.Parallel()

	records := collect(t, git.ParseLog(strings.NewReader("4444\x00Dan\x00dan@x"), ""))
	require.Len(t, records, 1)
	assert.Equal(t, "Dan", records[0].AuthorName)
	assert.Equal(t, "dan@x", records[0].AuthorEmail)
	assert.Empty(t, records[0].CommitterName)
}

func TestParseLogEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, collect(t, git.ParseLog(strings.NewReader(""), "")))
	assert.Empty(t, collect(t, git.ParseLog(strings.NewReader("\n"), "")))
}

func TestSubprocessError(t *testing.T) {
	t.Parallel()

	inner := errors.New("exit status 128")
	err := git.SubprocessError{ExitCode: 128, Stderr: "fatal: bad object", Err: inner}

	assert.Equal(t, "git exited with code 128: fatal: bad object", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "git exited with code 1", git.SubprocessError{ExitCode: 1}.Error())
}

func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func TestExecExtractor(t *testing.T) {
	t.Parallel()
	requireGit(t)

	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	h := gittest.Commit(t, repo, gittest.Sig("Alice", "alice@work.com"), gittest.Sig("Alice", "alice@personal.com"))

	records := collect(t, git.ExecExtractor{Mode: git.HistoryAll}.Records(context.Background(), dir, "local"))
	require.Len(t, records, 1)
	assert.Equal(t, identity.CommitRecord{
		Hash:           h.String(),
		Repository:     "local",
		AuthorName:     "Alice",
		AuthorEmail:    "alice@work.com",
		CommitterName:  "Alice",
		CommitterEmail: "alice@personal.com",
	}, records[0])
}

func TestExecExtractorEmptyRepository(t *testing.T) {
	t.Parallel()
	requireGit(t)

	dir := t.TempDir()
	gittest.Init(t, dir)

	assert.Empty(t, collect(t, git.ExecExtractor{Mode: git.HistoryDefault}.Records(context.Background(), dir, "")))
}

func TestBackendsAgreeOnHistory(t *testing.T) {
	t.Parallel()
	requireGit(t)

	dir := t.TempDir()
	notesRepo(t, dir)

	for _, mode := range []git.HistoryMode{git.HistoryAll, git.HistoryDefault} {
		native := collect(t, git.GoGitExtractor{Mode: mode}.Records(context.Background(), dir, "local"))
		shell := collect(t, git.ExecExtractor{Mode: mode}.Records(context.Background(), dir, "local"))
		assert.ElementsMatch(t, native, shell, "history %s", mode)
	}
}

func TestExecExtractorEmptyRepositoryLocale(t *testing.T) {
	requireGit(t)
	t.Setenv("LANG", "de_DE.UTF-8")
	t.Setenv("LANGUAGE", "de")
	t.Setenv("LC_ALL", "de_DE.UTF-8")

	dir := t.TempDir()
	gittest.Init(t, dir)

	for _, mode := range []git.HistoryMode{git.HistoryAll, git.HistoryDefault} {
		assert.Empty(t, collect(t, git.ExecExtractor{Mode: mode}.Records(context.Background(), dir, "")))
	}
}

func TestExecExtractorNotARepository(t *testing.T) {
	t.Parallel()
	requireGit(t)

	var errs []error
	for _, err := range (git.ExecExtractor{}).Records(context.Background(), t.TempDir(), "") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)

	var subErr git.SubprocessError
	require.ErrorAs(t, errs[0], &subErr)
	assert.NotZero(t, subErr.ExitCode)
}
