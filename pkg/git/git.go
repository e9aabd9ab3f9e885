package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

var ErrNotRepository = errors.New("not a git repository")

type Cloner interface {
	Clone(ctx context.Context, cloneURL string) (string, error)
}

// RemoteCloner clones remote repositories into fresh directories under Dir.
type RemoteCloner struct {
	Auth     transport.AuthMethod
	Dir      string
	Timeout  time.Duration
	Bare     bool
	Insecure bool
}

func (c *RemoteCloner) Clone(ctx context.Context, cloneURL string) (string, error) {
	dir, err := os.MkdirTemp(c.Dir, tempDirPrefix)
	if err != nil {
		return "", err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	_, err = git.PlainCloneContext(ctx, dir, c.Bare, &git.CloneOptions{
		URL:             cloneURL,
		InsecureSkipTLS: c.Insecure,
		Auth:            c.Auth,
	})
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	return dir, nil
}

// CloneRepos clones urls with a fixed number of workers. Every url produces
// exactly one result; failures are reported in the result, not returned.
func CloneRepos(ctx context.Context, c Cloner, urls []string, threads int) <-chan CloneResult {
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	wg.Add(threads)

	resultCh := make(chan CloneResult, len(urls))
	urlsCh := make(chan string, len(urls))

	for i := 0; i < threads; i++ {
		go func() {
			defer wg.Done()
			for url := range urlsCh {
				if err := ctx.Err(); err != nil {
					resultCh <- CloneResult{Origin: url, Error: err}
					continue
				}
				dir, err := c.Clone(ctx, url)
				resultCh <- CloneResult{Origin: url, Path: dir, Error: err}
			}
		}()
	}

	for _, url := range urls {
		urlsCh <- url
	}
	close(urlsCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// IsRepository reports whether path is the root of a work tree or of a bare
// repository.
func IsRepository(path string) bool {
	if _, err := os.Stat(filepath.Join(path, git.GitDirName)); err == nil {
		return true
	}
	for _, name := range []string{"HEAD", "objects", "refs"} {
		if _, err := os.Stat(filepath.Join(path, name)); err != nil {
			return false
		}
	}
	return true
}

// FindRepos returns the repository roots at or below root. Without recursive
// root itself must be a repository. Found repositories are not descended into.
func FindRepos(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	if !recursive {
		if !IsRepository(root) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotRepository)
		}
		return []string{root}, nil
	}

	var repos []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == git.GitDirName {
			return fs.SkipDir
		}
		if IsRepository(path) {
			repos = append(repos, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return repos, nil
}

func NewSSHAuth(username, privateKeyFile, password string) (transport.AuthMethod, error) {
	return ssh.NewPublicKeysFromFile(username, privateKeyFile, password)
}

func NewBasicAuth(username, password string) transport.AuthMethod {
	return &githttp.BasicAuth{
		Username: username,
		Password: password,
	}
}
