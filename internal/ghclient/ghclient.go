// Package ghclient adapts the GitHub REST and GraphQL APIs to contract.DataSource.
package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// perPage is the page size used for every paginated listing.
const perPage = 100

// Client implements contract.DataSource against api.github.com or a compatible server.
type Client struct {
	gh *github.Client
}

var _ contract.DataSource = &Client{} // Compile-time check

// New creates a client bound to one token. An empty token makes unauthenticated calls.
func New(apiURL, token string) (*Client, error) {
	gh := github.NewClient(&http.Client{})
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		base, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid api url %q: %w", apiURL, err)
		}
		gh.BaseURL = base
	}
	return &Client{gh: gh}, nil
}

// NewDataSourceFactory returns a factory that binds clients to apiURL.
func NewDataSourceFactory(apiURL string) contract.DataSourceFactory {
	return func(token string) (contract.DataSource, error) {
		return New(apiURL, token)
	}
}

// GetRateLimit implements the DataSource interface.
func (c *Client) GetRateLimit(ctx context.Context) (schema.RateLimit, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return schema.RateLimit{}, mapError(err, "rate limit")
	}
	core := limits.GetCore()
	if core == nil {
		return schema.RateLimit{}, nil
	}
	return schema.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// GetUser implements the DataSource interface.
func (c *Client) GetUser(ctx context.Context, username string) (schema.UserProfile, error) {
	u, _, err := c.gh.Users.Get(ctx, username)
	if err != nil {
		return schema.UserProfile{}, mapError(err, "user "+username)
	}
	return schema.UserProfile{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Company:     u.GetCompany(),
		Location:    u.GetLocation(),
		Bio:         u.GetBio(),
		Blog:        u.GetBlog(),
		Hireable:    u.GetHireable(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		CreatedAt:   u.GetCreatedAt().Time,
	}, nil
}

// ListRepositories implements the DataSource interface.
func (c *Client) ListRepositories(ctx context.Context, username string) ([]schema.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	repos := []schema.Repository{}
	for {
		page, resp, err := c.gh.Repositories.ListByUser(ctx, username, opts)
		if err != nil {
			return nil, mapError(err, "repositories of "+username)
		}
		for _, r := range page {
			repos = append(repos, convertRepository(r))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return repos, nil
}

// GetPullRequestMetrics implements the DataSource interface.
func (c *Client) GetPullRequestMetrics(ctx context.Context, username string) (schema.PullRequestMetrics, error) {
	var m schema.PullRequestMetrics
	// Only the totals matter, so one result per page is enough
	queries := []struct {
		query string
		dst   *int
	}{
		{"type:pr author:" + username, &m.Total},
		{"type:pr is:merged author:" + username, &m.Merged},
		{"type:pr is:open author:" + username, &m.Open},
		{"type:issue author:" + username, &m.IssuesOpened},
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}}
	for _, q := range queries {
		res, _, err := c.gh.Search.Issues(ctx, q.query, opts)
		if err != nil {
			return schema.PullRequestMetrics{}, mapError(err, "pull request search")
		}
		*q.dst = res.GetTotal()
	}
	return m, nil
}

// ListOrganizations implements the DataSource interface.
func (c *Client) ListOrganizations(ctx context.Context, username string) ([]string, error) {
	opts := &github.ListOptions{PerPage: perPage}
	orgs := []string{}
	for {
		page, resp, err := c.gh.Organizations.List(ctx, username, opts)
		if err != nil {
			return nil, mapError(err, "organizations of "+username)
		}
		for _, o := range page {
			orgs = append(orgs, o.GetLogin())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return orgs, nil
}

// convertRepository maps the API model onto the schema type.
func convertRepository(r *github.Repository) schema.Repository {
	return schema.Repository{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Description:   r.GetDescription(),
		Language:      r.GetLanguage(),
		License:       r.GetLicense().GetSPDXID(),
		DefaultBranch: r.GetDefaultBranch(),
		Topics:        r.Topics,
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		SizeKB:        r.GetSize(),
		Fork:          r.GetFork(),
		Archived:      r.GetArchived(),
		HasWiki:       r.GetHasWiki(),
		HasPages:      r.GetHasPages(),
		CreatedAt:     r.GetCreatedAt().Time,
		UpdatedAt:     r.GetUpdatedAt().Time,
		PushedAt:      r.GetPushedAt().Time,
	}
}
