// Package gittest builds small repositories for tests.
package gittest

import (
	"crypto/md5"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/google/uuid"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func Sig(name, email string) *object.Signature {
	return &object.Signature{Name: name, Email: email, When: epoch}
}

// Init creates a repository with a work tree in dir.
func Init(t testing.TB, dir string) *git.Repository {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init %s: %v", dir, err)
	}
	return repo
}

// InMemory creates a repository backed by memory storage and filesystem.
func InMemory(t testing.TB) *git.Repository {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("init in memory: %v", err)
	}
	return repo
}

// Commit writes a new file and commits it with the given signatures.
func Commit(t testing.TB, repo *git.Repository, author, committer *object.Signature) plumbing.Hash {
	t.Helper()

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}

	name := uuid.NewString()
	file, err := worktree.Filesystem.Create(name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	sum := md5.Sum([]byte(author.Email + committer.Email + name))
	if _, err := file.Write(sum[:]); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	file.Close()

	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	hash, err := worktree.Commit(name, &git.CommitOptions{
		Author:    author,
		Committer: committer,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

// Branch creates branch name at from and checks it out.
func Branch(t testing.TB, repo *git.Repository, name string, from plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewBranchReferenceName(name)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, from)); err != nil {
		t.Fatalf("branch %s: %v", name, err)
	}
	Checkout(t, repo, name)
}

// Ref points an arbitrary reference, like refs/notes/commits, at h.
func Ref(t testing.TB, repo *git.Repository, name string, h plumbing.Hash) {
	t.Helper()

	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), h)); err != nil {
		t.Fatalf("ref %s: %v", name, err)
	}
}

func RemoveBranch(t testing.TB, repo *git.Repository, name string) {
	t.Helper()

	if err := repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		t.Fatalf("remove branch %s: %v", name, err)
	}
}

func Checkout(t testing.TB, repo *git.Repository, name string) {
	t.Helper()

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	err = worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)})
	if err != nil {
		t.Fatalf("checkout %s: %v", name, err)
	}
}
