package git_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitpersona/pkg/git"
	"gitpersona/pkg/git/gittest"
	"gitpersona/pkg/identity"
)

func collect(t *testing.T, seq func(func(identity.CommitRecord, error) bool)) []identity.CommitRecord {
	t.Helper()

	var out []identity.CommitRecord
	for rec, err := range seq {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestCollectRecordsInMemory(t *testing.T) {
	t.Parallel()

	repo := gittest.InMemory(t)
	first := gittest.Commit(t, repo, gittest.Sig("Alice", "alice@work.com"), gittest.Sig("Alice", "alice@personal.com"))
	gittest.Commit(t, repo, gittest.Sig("", "ghost@x.com"), gittest.Sig("Bob", "bob@x.com"))

	records := collect(t, git.CollectRecords(context.Background(), repo, "mem", git.HistoryAll))
	require.Len(t, records, 2)

	byHash := make(map[string]identity.CommitRecord)
	for _, r := range records {
		byHash[r.Hash] = r
		assert.Equal(t, "mem", r.Repository)
	}

	r := byHash[first.String()]
	assert.Equal(t, "Alice", r.AuthorName)
	assert.Equal(t, "alice@work.com", r.AuthorEmail)
	assert.Equal(t, "alice@personal.com", r.CommitterEmail)
}

func TestCollectRecordsEmptyRepository(t *testing.T) {
	t.Parallel()

	repo := gittest.InMemory(t)
	for _, mode := range []git.HistoryMode{git.HistoryAll, git.HistoryDefault} {
		assert.Empty(t, collect(t, git.CollectRecords(context.Background(), repo, "", mode)))
	}
}

func TestHistoryModes(t *testing.T) {
	t.Parallel()

	repo := gittest.Init(t, t.TempDir())
	base := gittest.Commit(t, repo, gittest.Sig("a", "a@x"), gittest.Sig("a", "a@x"))
	gittest.Commit(t, repo, gittest.Sig("b", "b@x"), gittest.Sig("b", "b@x"))

	gittest.Branch(t, repo, "side", base)
	gittest.Commit(t, repo, gittest.Sig("c", "c@x"), gittest.Sig("c", "c@x"))
	gittest.Checkout(t, repo, "master")

	names := func(records []identity.CommitRecord) []string {
		var out []string
		for _, r := range records {
			out = append(out, r.AuthorName)
		}
		return out
	}

	all := collect(t, git.CollectRecords(context.Background(), repo, "", git.HistoryAll))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names(all))

	head := collect(t, git.CollectRecords(context.Background(), repo, "", git.HistoryDefault))
	assert.ElementsMatch(t, []string{"a", "b"}, names(head))
}

// notesRepo builds a repository whose second commit is only reachable from
// refs/notes/commits.
func notesRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()

	repo := gittest.Init(t, dir)
	base := gittest.Commit(t, repo, gittest.Sig("alice", "alice@x"), gittest.Sig("alice", "alice@x"))

	gittest.Branch(t, repo, "notes", base)
	note := gittest.Commit(t, repo, gittest.Sig("noter", "noter@secret"), gittest.Sig("noter", "noter@secret"))
	gittest.Checkout(t, repo, "master")
	gittest.Ref(t, repo, "refs/notes/commits", note)
	gittest.RemoveBranch(t, repo, "notes")
	return repo
}

func emails(records []identity.CommitRecord) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.AuthorEmail)
	}
	return out
}

func TestHistoryAllFollowsEveryRef(t *testing.T) {
	t.Parallel()

	repo := notesRepo(t, t.TempDir())

	all := collect(t, git.CollectRecords(context.Background(), repo, "", git.HistoryAll))
	assert.ElementsMatch(t, []string{"alice@x", "noter@secret"}, emails(all))

	head := collect(t, git.CollectRecords(context.Background(), repo, "", git.HistoryDefault))
	assert.Equal(t, []string{"alice@x"}, emails(head))
}

func TestCollectRecordsStopsEarly(t *testing.T) {
	t.Parallel()

	repo := gittest.InMemory(t)
	for i := 0; i < 5; i++ {
		gittest.Commit(t, repo, gittest.Sig("a", "a@x"), gittest.Sig("a", "a@x"))
	}

	n := 0
	for range git.CollectRecords(context.Background(), repo, "", git.HistoryAll) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestCollectRecordsCancelled(t *testing.T) {
	t.Parallel()

	repo := gittest.InMemory(t)
	gittest.Commit(t, repo, gittest.Sig("a", "a@x"), gittest.Sig("a", "a@x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var lastErr error
	for _, err := range git.CollectRecords(ctx, repo, "", git.HistoryAll) {
		lastErr = err
	}
	assert.ErrorIs(t, lastErr, context.Canceled)
}

func TestGoGitExtractor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	gittest.Commit(t, repo, gittest.Sig("a", "a@x"), gittest.Sig("b", "b@x"))

	records := collect(t, git.GoGitExtractor{Mode: git.HistoryAll}.Records(context.Background(), dir, "origin"))
	require.Len(t, records, 1)
	assert.Equal(t, "b@x", records[0].CommitterEmail)
	assert.Equal(t, "origin", records[0].Repository)
}

func TestGoGitExtractorNotARepository(t *testing.T) {
	t.Parallel()

	var errs []error
	for _, err := range (git.GoGitExtractor{}).Records(context.Background(), t.TempDir(), "") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], gogit.ErrRepositoryNotExists)
}

func TestFindRepos(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	gittest.Init(t, filepath.Join(root, "a"))
	gittest.Init(t, filepath.Join(root, "b", "nested"))
	inner := filepath.Join(root, "a", "vendor", "inner")
	gittest.Init(t, inner)

	bare := filepath.Join(root, "c.git")
	_, err := gogit.PlainInit(bare, true)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain", "dir"), 0o755))

	repos, err := git.FindRepos(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b", "nested"),
		bare,
	}, repos)
}

func TestFindReposNonRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := git.FindRepos(root, false)
	require.ErrorIs(t, err, git.ErrNotRepository)

	gittest.Init(t, root)
	repos, err := git.FindRepos(root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, repos)
}

func TestFindReposMissingPath(t *testing.T) {
	t.Parallel()

	_, err := git.FindRepos(filepath.Join(t.TempDir(), "missing"), true)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCloneReposReportsFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	workDir := t.TempDir()
	cloner := &git.RemoteCloner{Dir: workDir, Bare: true}
	urls := []string{srv.URL + "/one.git", srv.URL + "/two.git"}

	var results []git.CloneResult
	for r := range git.CloneRepos(context.Background(), cloner, urls, 2) {
		results = append(results, r)
	}

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Error)
		assert.Empty(t, r.Path)
		assert.True(t, strings.HasPrefix(r.Origin, srv.URL))
	}

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed clones must not leave directories behind")
}

func TestParseHistoryMode(t *testing.T) {
	t.Parallel()

	m, err := git.ParseHistoryMode("")
	require.NoError(t, err)
	assert.Equal(t, git.HistoryAll, m)

	m, err = git.ParseHistoryMode("default")
	require.NoError(t, err)
	assert.Equal(t, git.HistoryDefault, m)

	_, err = git.ParseHistoryMode("some")
	require.Error(t, err)
}
