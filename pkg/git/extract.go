package git

import (
	"context"
	"errors"
	"iter"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"gitpersona/pkg/identity"
)

// GoGitExtractor reads history in process with go-git.
type GoGitExtractor struct {
	Mode HistoryMode
}

func (e GoGitExtractor) Records(ctx context.Context, path, origin string) iter.Seq2[identity.CommitRecord, error] {
	return func(yield func(identity.CommitRecord, error) bool) {
		repo, err := git.PlainOpen(path)
		if err != nil {
			yield(identity.CommitRecord{}, err)
			return
		}
		for rec, err := range CollectRecords(ctx, repo, origin, e.Mode) {
			if !yield(rec, err) {
				return
			}
		}
	}
}

// CollectRecords walks the history of repo once, visiting every reachable
// commit a single time in ref name order.
func CollectRecords(ctx context.Context, repo *git.Repository, origin string, mode HistoryMode) iter.Seq2[identity.CommitRecord, error] {
	return func(yield func(identity.CommitRecord, error) bool) {
		tips, err := historyTips(repo, mode)
		if err != nil {
			yield(identity.CommitRecord{}, err)
			return
		}

		seen := make(map[plumbing.Hash]bool)
		for _, tip := range tips {
			if seen[tip.Hash] {
				continue
			}

			stopped := false
			cIter := object.NewCommitPreorderIter(tip, seen, nil)
			err := cIter.ForEach(func(c *object.Commit) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				seen[c.Hash] = true
				if !yield(recordFromCommit(origin, c), nil) {
					stopped = true
					return storer.ErrStop
				}
				return nil
			})
			cIter.Close()
			if stopped {
				return
			}
			if err != nil {
				yield(identity.CommitRecord{}, err)
				return
			}
		}
	}
}

func recordFromCommit(origin string, c *object.Commit) identity.CommitRecord {
	return identity.CommitRecord{
		Hash:           c.Hash.String(),
		Repository:     origin,
		AuthorName:     c.Author.Name,
		AuthorEmail:    c.Author.Email,
		CommitterName:  c.Committer.Name,
		CommitterEmail: c.Committer.Email,
	}
}

func historyTips(repo *git.Repository, mode HistoryMode) ([]*object.Commit, error) {
	var tips []*object.Commit

	head, err := repo.Head()
	switch {
	case err == nil:
		c, err := peelCommit(repo, head.Hash())
		if err != nil {
			return nil, err
		}
		if c != nil {
			tips = append(tips, c)
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	default:
		return nil, err
	}

	if mode == HistoryDefault {
		return tips, nil
	}

	refs, err := repo.References()
	if err != nil {
		return nil, err
	}

	var named []*plumbing.Reference
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		// Every ref, like git log --all: notes and stash included.
		if ref.Type() == plumbing.HashReference && ref.Name() != plumbing.HEAD {
			named = append(named, ref)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(named, func(i, j int) bool { return named[i].Name() < named[j].Name() })

	for _, ref := range named {
		c, err := peelCommit(repo, ref.Hash())
		if err != nil {
			return nil, err
		}
		if c != nil {
			tips = append(tips, c)
		}
	}

	return tips, nil
}

// peelCommit resolves a ref target to a commit. Targets that are not commits,
// like a tag of a tree, give a nil commit.
func peelCommit(repo *git.Repository, h plumbing.Hash) (*object.Commit, error) {
	obj, err := repo.Object(plumbing.AnyObject, h)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *object.Commit:
		return o, nil
	case *object.Tag:
		c, err := o.Commit()
		if errors.Is(err, object.ErrUnsupportedObject) {
			return nil, nil
		}
		return c, err
	}
	return nil, nil
}
