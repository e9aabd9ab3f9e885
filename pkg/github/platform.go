package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v35/github"

	"gitpersona/pkg/identity"
)

// ErrNotHosted is returned for repositories that do not live on the platform.
var ErrNotHosted = errors.New("repository is not hosted on this platform")

type PlatformOptions struct {
	// Host is the web host of the platform, github.com unless enterprise.
	Host  string
	Forks bool
	Orgs  bool
}

// Platform answers the questions the scanner asks the hosting service.
type Platform struct {
	client *Client
	opts   PlatformOptions
}

func NewPlatform(client *Client, opts PlatformOptions) *Platform {
	if opts.Host == "" {
		opts.Host = "github.com"
	}
	return &Platform{client: client, opts: opts}
}

// ListCloneURLs returns the clone URLs of every repository owned by the
// account, including the repositories of its organizations when enabled.
func (p *Platform) ListCloneURLs(ctx context.Context, nickname string) ([]string, error) {
	user, err := p.client.GetUserOrOrganization(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to get account '%s': %w", nickname, err)
	}

	repos, err := p.client.ListRepositories(ctx, user.GetLogin(), user.GetType(), p.opts.Forks)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for '%s': %w", user.GetLogin(), err)
	}

	if p.opts.Orgs && user.GetType() != "Organization" {
		orgs, err := p.client.GetUserOrganizations(ctx, user.GetLogin())
		if err != nil {
			return nil, fmt.Errorf("failed to get organizations for '%s': %w", user.GetLogin(), err)
		}
		for _, org := range orgs {
			orgRepos, err := p.client.ListRepositories(ctx, org.GetLogin(), "Organization", p.opts.Forks)
			if err != nil {
				return nil, fmt.Errorf("failed to list repositories for organization '%s': %w", org.GetLogin(), err)
			}
			repos = append(repos, orgRepos...)
		}
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, repo := range repos {
		u := cloneURL(repo)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls, nil
}

func cloneURL(repo *github.Repository) string {
	if u := repo.GetCloneURL(); u != "" {
		return u
	}
	return repo.GetHTMLURL()
}

// CommitAccount returns the login of the account linked to the author or
// committer of a commit in a hosted repository.
func (p *Platform) CommitAccount(ctx context.Context, origin, hash string, role identity.Role) (string, error) {
	owner, name, err := p.splitOrigin(origin)
	if err != nil {
		return "", err
	}

	commit, err := p.client.GetCommit(ctx, owner, name, hash)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s of %s/%s: %w", hash, owner, name, err)
	}

	if role == identity.Committer {
		return commit.GetCommitter().GetLogin(), nil
	}
	return commit.GetAuthor().GetLogin(), nil
}

func (p *Platform) RateLimited(ctx context.Context, err error) bool {
	return p.client.IsGlobalRateLimitExceeded(ctx, err)
}

func (p *Platform) splitOrigin(origin string) (string, string, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || !strings.EqualFold(u.Host, p.opts.Host) {
		return "", "", fmt.Errorf("%s: %w", origin, ErrNotHosted)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%s: %w", origin, ErrNotHosted)
	}
	owner := parts[len(parts)-2]
	name := strings.TrimSuffix(parts[len(parts)-1], ".git")
	return owner, name, nil
}
