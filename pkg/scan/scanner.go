// Package scan resolves a source into repositories, extracts their commits
// and folds them into an identity.State.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gitpersona/pkg/git"
	"gitpersona/pkg/identity"
)

// Hosting is the part of a hosting platform the scanner depends on.
type Hosting interface {
	ListCloneURLs(ctx context.Context, nickname string) ([]string, error)
	CommitAccount(ctx context.Context, origin, hash string, role identity.Role) (string, error)
	RateLimited(ctx context.Context, err error) bool
}

type Scanner struct {
	Cloner    git.Cloner
	Extractor git.Extractor
	Hosting   Hosting
	Threads   int
	// Timeout bounds the extraction of a single repository.
	Timeout time.Duration
	// Keep leaves cloned repositories on disk.
	Keep bool
}

type Summary struct {
	Resolved int
	Scanned  int
	Skipped  int
}

type job struct {
	origin string
	path   string
	cloned bool
	err    error
}

type result struct {
	origin  string
	partial *identity.State
	err     error
}

// Run scans every repository of src into state. Failing repositories are
// logged, marked as skipped on state and do not stop the run.
func (s *Scanner) Run(ctx context.Context, src Source, state *identity.State) (Summary, error) {
	log := zerolog.Ctx(ctx)

	if err := src.Validate(); err != nil {
		return Summary{}, &SourceError{Source: src.String(), Err: err}
	}

	jobs, total, err := s.resolve(ctx, src)
	if err != nil {
		return Summary{}, err
	}
	if total == 0 {
		return Summary{}, fmt.Errorf("%s: %w", src, ErrNoRepositories)
	}
	log.Info().Int("repositories", total).Str("source", src.String()).Msg("resolved source")

	results := s.extractAll(ctx, state, jobs)

	summary := Summary{Resolved: total}
	var firstErr error
	for r := range results {
		if r.err != nil {
			summary.Skipped++
			if firstErr == nil {
				firstErr = r.err
			}
			state.MarkSkipped(r.origin, r.err)
			log.Warn().Err(r.err).Str("repository", r.origin).Msg("skipping repository")
			continue
		}
		summary.Scanned++
		state.Merge(r.partial)
		state.MarkRepository(r.origin)
		log.Debug().Str("repository", r.origin).
			Int("commits", r.partial.GlobalStatistics().Commits).
			Msg("repository scanned")
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if summary.Scanned == 0 {
		return summary, fmt.Errorf("%w: %w", ErrAllFailed, firstErr)
	}
	return summary, nil
}

// resolve turns a source into a stream of jobs and the number of jobs that
// stream will carry.
func (s *Scanner) resolve(ctx context.Context, src Source) (<-chan job, int, error) {
	if src.Dir != "" {
		paths, err := git.FindRepos(src.Dir, src.Recursive)
		if err != nil {
			return nil, 0, &SourceError{Source: src.Dir, Err: err}
		}
		jobs := make(chan job, len(paths))
		for _, p := range paths {
			jobs <- job{origin: p, path: p}
		}
		close(jobs)
		return jobs, len(paths), nil
	}

	var urls []string
	if src.URL != "" {
		urls = []string{src.URL}
	} else {
		if s.Hosting == nil {
			return nil, 0, &SourceError{Source: src.String(), Err: errors.New("no hosting platform configured")}
		}
		var err error
		urls, err = s.Hosting.ListCloneURLs(ctx, src.Nickname)
		if err != nil {
			return nil, 0, &SourceError{Source: src.String(), Err: err}
		}
	}
	if len(urls) == 0 {
		return nil, 0, nil
	}
	if s.Cloner == nil {
		return nil, 0, &SourceError{Source: src.String(), Err: errors.New("cloning is not configured")}
	}

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for res := range git.CloneRepos(ctx, s.Cloner, urls, s.threads()) {
			j := job{origin: res.Origin, path: res.Path, cloned: true}
			if res.Error != nil {
				j.err = &CloneError{Origin: res.Origin, Err: res.Error}
			}
			jobs <- j
		}
	}()
	return jobs, len(urls), nil
}

func (s *Scanner) extractAll(ctx context.Context, state *identity.State, jobs <-chan job) <-chan result {
	threads := s.threads()
	results := make(chan result)

	var wg sync.WaitGroup
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- s.extract(ctx, state.Partial(), j)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

func (s *Scanner) extract(ctx context.Context, partial *identity.State, j job) result {
	if j.err != nil {
		return result{origin: j.origin, err: j.err}
	}
	if j.cloned && !s.Keep {
		defer os.RemoveAll(j.path)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	for rec, err := range s.Extractor.Records(ctx, j.path, j.origin) {
		if err != nil {
			return result{origin: j.origin, err: &ExtractionError{Origin: j.origin, Err: err}}
		}
		partial.Fold(rec)
	}
	return result{origin: j.origin, partial: partial}
}

func (s *Scanner) threads() int {
	if s.Threads < 1 {
		return 1
	}
	return s.Threads
}
