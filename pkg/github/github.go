package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v35/github"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL   = "https://api.github.com/"
	DefaultUploadURL = "https://uploads.github.com/"

	perPage = 100
)

type Client struct {
	client *github.Client
}

// NewClient builds an API client. An empty token gives an unauthenticated
// client with the public rate limit.
func NewClient(token, baseURL, uploadURL string) (*Client, error) {
	httpClient := &http.Client{Timeout: time.Minute}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	var c *github.Client
	var err error
	if baseURL == "" || baseURL == DefaultBaseURL {
		c = github.NewClient(httpClient)
	} else {
		if uploadURL == "" {
			uploadURL = baseURL
		}
		c, err = github.NewEnterpriseClient(baseURL, uploadURL, httpClient)
		if err != nil {
			return nil, err
		}
	}
	return &Client{client: c}, nil
}

func (c Client) GetUserOrOrganization(ctx context.Context, name string) (*github.User, error) {
	user, _, err := c.client.Users.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (c Client) GetUserOrganizations(ctx context.Context, name string) ([]*github.Organization, error) {
	options := &github.ListOptions{PerPage: perPage}
	var orgs []*github.Organization

	for {
		org, resp, err := c.client.Organizations.List(ctx, name, options)
		if err != nil {
			return orgs, err
		}

		orgs = append(orgs, org...)
		if resp.NextPage == 0 {
			break
		}

		options.Page = resp.NextPage
	}

	return orgs, nil
}

// ListRepositories lists every repository owned by a user or an
// organization, following pagination to the last page.
func (c Client) ListRepositories(ctx context.Context, user, userType string, includeForks bool) ([]*github.Repository, error) {
	options := github.ListOptions{PerPage: perPage}
	optUser := &github.RepositoryListOptions{
		Type:        "owner",
		ListOptions: options,
	}
	optOrg := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: options,
	}

	var repos []*github.Repository
	var resp *github.Response
	var err error

	var allRepos []*github.Repository

	for {
		if userType == "Organization" {
			repos, resp, err = c.client.Repositories.ListByOrg(ctx, user, optOrg)
		} else {
			repos, resp, err = c.client.Repositories.List(ctx, user, optUser)
		}

		if err != nil {
			return allRepos, err
		}

		for _, repo := range repos {
			if !repo.GetFork() || includeForks {
				allRepos = append(allRepos, repo)
			}
		}

		if resp.NextPage == 0 {
			break
		}

		if userType == "Organization" {
			optOrg.Page = resp.NextPage
		} else {
			optUser.Page = resp.NextPage
		}
	}
	return allRepos, nil
}

func (c Client) GetCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, error) {
	commit, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}
	return commit, nil
}

func (c Client) RateLimits(ctx context.Context) (*github.RateLimits, error) {
	limits, _, err := c.client.RateLimits(ctx)
	return limits, err
}

// IsGlobalRateLimitExceeded reports whether err is a rate limit error and no
// core requests are left.
func (c Client) IsGlobalRateLimitExceeded(ctx context.Context, err error) bool {
	var rateErr *github.RateLimitError
	if !errors.As(err, &rateErr) {
		return false
	}

	limits, lerr := c.RateLimits(ctx)
	if lerr != nil {
		return true
	}
	return limits.GetCore().Remaining == 0
}
