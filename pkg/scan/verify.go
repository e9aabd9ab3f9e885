package scan

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"gitpersona/pkg/github"
	"gitpersona/pkg/identity"
)

type sampleKey struct {
	origin string
	hash   string
	role   identity.Role
}

// Verify looks up the hosting account behind every identity that has a
// sample commit in a hosted repository. Lookup failures are logged and
// skipped; the walk stops when the platform rate limit is exhausted.
func (s *Scanner) Verify(ctx context.Context, state *identity.State) (int, error) {
	log := zerolog.Ctx(ctx)
	if s.Hosting == nil {
		return 0, errors.New("no hosting platform configured")
	}

	cache := make(map[sampleKey]string)
	verified := 0
	for _, id := range state.AllIdentities() {
		if err := ctx.Err(); err != nil {
			return verified, err
		}

		smp, ok := state.SampleCommit(id)
		if !ok {
			continue
		}

		key := sampleKey{origin: smp.Repository, hash: smp.Hash, role: smp.Role}
		login, ok := cache[key]
		if !ok {
			var err error
			login, err = s.Hosting.CommitAccount(ctx, smp.Repository, smp.Hash, smp.Role)
			if errors.Is(err, github.ErrNotHosted) {
				log.Debug().Str("repository", smp.Repository).Msg("repository is not hosted, skipping verification")
				continue
			}
			if err != nil {
				if s.Hosting.RateLimited(ctx, err) {
					log.Warn().Err(err).Msg("rate limit exhausted, stopping account verification")
					return verified, nil
				}
				log.Warn().Err(err).Str("identity", id.String()).Msg("failed to verify account")
				continue
			}
			cache[key] = login
		}

		if login == "" {
			continue
		}
		state.SetAccount(id, login)
		verified++
	}

	return verified, nil
}
