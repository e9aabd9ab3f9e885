package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cgi"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitpersona/cmd"
	"gitpersona/pkg/git/gittest"
	"gitpersona/pkg/report"
	"gitpersona/pkg/scan"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Chdir(t.TempDir())
	root := cmd.NewCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--log-level", "off", "--workdir", t.TempDir()))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestGitDirectoryJSON(t *testing.T) {
	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	gittest.Commit(t, repo, gittest.Sig("Alice", "alice@work.com"), gittest.Sig("Alice", "alice@personal.com"))
	gittest.Commit(t, repo, gittest.Sig("Bob", "bob@x.com"), gittest.Sig("GitHub", "noreply@github.com"))

	out, err := run(t, "git", "--dir", dir, "--format", "json", "-v")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, []string{dir}, r.Repositories)
	assert.Equal(t, 2, r.Statistics.Commits)
	assert.Equal(t, 3, r.Statistics.Identities, "noreply@github.com is filtered")
	require.Len(t, r.SharedNames, 1)
	assert.Equal(t, "Alice", r.SharedNames[0].Name)
}

func TestGitExcludeAndOutputFile(t *testing.T) {
	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	gittest.Commit(t, repo, gittest.Sig("Alice", "alice@work.com"), gittest.Sig("CI", "ci@build.local"))

	outFile := filepath.Join(t.TempDir(), "report.yaml")
	_, err := run(t, "git", "--dir", dir, "--format", "yaml", "--exclude", "*@build.local", "-o", outFile)
	require.NoError(t, err)

	body, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(body), "identities: 1")
}

func TestGitTextReport(t *testing.T) {
	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	gittest.Commit(t, repo, gittest.Sig("", "anon@x.com"), gittest.Sig("", "anon@x.com"))

	out, err := run(t, "git", "--dir", dir, "-v", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis of 1 repository")
	assert.Contains(t, out, "(unknown)")
	assert.NotContains(t, out, "\x1b[")
}

func TestGitUsageErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"no source":      {"git"},
		"two sources":    {"git", "--dir", ".", "--url", "https://example.com/a/b.git"},
		"recursive url":  {"git", "--url", "https://example.com/a/b.git", "-r"},
		"bad history":    {"git", "--dir", ".", "--history", "recent"},
		"username alone": {"git", "--url", "https://example.com/a/b.git", "-u", "alice"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, args...)
			require.Error(t, err)
		})
	}
}

func TestGitNotARepository(t *testing.T) {
	_, err := run(t, "git", "--dir", t.TempDir())
	var srcErr *scan.SourceError
	require.ErrorAs(t, err, &srcErr)
}

func TestGitHubAccountWithoutRepositories(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v3/users/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"empty","type":"User"}`)
	})
	mux.HandleFunc("/api/v3/users/empty/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	_, err := run(t, "github", "-n", "empty", "--baseurl", srv.URL+"/", "--uploadurl", srv.URL+"/")
	require.ErrorIs(t, err, scan.ErrNoRepositories)
}

func TestGitHubRateLimits(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v3/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resources":{"core":{"limit":60,"remaining":59,"reset":1600000000}}}`)
	})

	out, err := run(t, "github", "--rate", "--baseurl", srv.URL+"/", "--uploadurl", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, `"remaining": 59`)
}

// gitServer serves repositories under root over smart HTTP through
// git http-backend, next to a fake GitHub API mounted on mux.
func gitServer(t *testing.T, root string) (*http.ServeMux, *httptest.Server) {
	t.Helper()

	bin, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git binary not available")
	}

	mux := http.NewServeMux()
	mux.Handle("/alice/", &cgi.Handler{
		Path: bin,
		Args: []string{"http-backend"},
		Env:  []string{"GIT_PROJECT_ROOT=" + root, "GIT_HTTP_EXPORT_ALL=1"},
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return mux, srv
}

func TestGitURLVerify(t *testing.T) {
	root := t.TempDir()
	repo := gittest.Init(t, filepath.Join(root, "alice", "proj.git"))
	hash := gittest.Commit(t, repo, gittest.Sig("Alice", "alice@work.com"), gittest.Sig("GitHub", "web@github.com"))

	mux, srv := gitServer(t, root)
	var lookups atomic.Int32
	mux.HandleFunc("/api/v3/repos/alice/proj/commits/"+hash.String(), func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		fmt.Fprintf(w, `{"sha":%q,"author":{"login":"alice-gh"},"committer":{"login":"web-flow"}}`, hash.String())
	})

	out, err := run(t, "git", "--url", srv.URL+"/alice/proj.git", "--verify",
		"--baseurl", srv.URL+"/", "--uploadurl", srv.URL+"/", "--format", "json", "-v")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	accounts := make(map[string]string)
	for _, id := range r.Identities {
		accounts[id.Email] = id.Account
	}
	assert.Equal(t, map[string]string{
		"alice@work.com": "alice-gh",
		"web@github.com": "web-flow",
	}, accounts)
	assert.EqualValues(t, 2, lookups.Load(), "one lookup per role")
}

func TestGitDirectoryVerifySkipsLocalOrigins(t *testing.T) {
	dir := t.TempDir()
	repo := gittest.Init(t, dir)
	gittest.Commit(t, repo, gittest.Sig("Alice", "alice@work.com"), gittest.Sig("Alice", "alice@work.com"))

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API call %s", r.URL.Path)
	})

	out, err := run(t, "git", "--dir", dir, "--verify", "--baseurl", srv.URL+"/", "--uploadurl", srv.URL+"/", "--format", "json", "-v")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Identities, 1)
	assert.Empty(t, r.Identities[0].Account)
}
