package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/huangsam/devscore/schema"
)

// GetLanguages implements the DataSource interface.
func (c *Client) GetLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	langs, _, err := c.gh.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, mapError(err, "languages of "+owner+"/"+repo)
	}
	if langs == nil {
		langs = map[string]int{}
	}
	return langs, nil
}

// GetReadme implements the DataSource interface.
func (c *Client) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	readme, _, err := c.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	if isStatus(err, http.StatusNotFound) {
		return "", nil
	}
	if err != nil {
		return "", mapError(err, "readme of "+owner+"/"+repo)
	}
	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode readme of %s/%s: %w", owner, repo, err)
	}
	return content, nil
}

// ListCommits implements the DataSource interface.
func (c *Client) ListCommits(ctx context.Context, owner, repo, author string, limit int) ([]schema.Commit, error) {
	if limit <= 0 {
		return []schema.Commit{}, nil
	}
	opts := &github.CommitsListOptions{
		Author:      author,
		ListOptions: github.ListOptions{PerPage: min(limit, perPage)},
	}

	commits := []schema.Commit{}
	for len(commits) < limit {
		page, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
		// An empty repository answers 409 Conflict
		if isStatus(err, http.StatusConflict) {
			return commits, nil
		}
		if err != nil {
			return nil, mapError(err, "commits of "+owner+"/"+repo)
		}
		for _, rc := range page {
			if len(commits) == limit {
				break
			}
			commit := rc.GetCommit()
			commits = append(commits, schema.Commit{
				SHA:        rc.GetSHA(),
				Message:    strings.TrimSpace(commit.GetMessage()),
				AuthoredAt: commit.GetAuthor().GetDate().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

// CountContributors implements the DataSource interface.
func (c *Client) CountContributors(ctx context.Context, owner, repo string) (int, error) {
	page, resp, err := c.gh.Repositories.ListContributors(ctx, owner, repo, &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return 0, mapError(err, "contributors of "+owner+"/"+repo)
	}
	return countFromPage(len(page), resp), nil
}

// CountBranches implements the DataSource interface.
func (c *Client) CountBranches(ctx context.Context, owner, repo string) (int, error) {
	page, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return 0, mapError(err, "branches of "+owner+"/"+repo)
	}
	return countFromPage(len(page), resp), nil
}

// countFromPage turns a one-item page into a total using the Link header.
func countFromPage(items int, resp *github.Response) int {
	if resp != nil && resp.LastPage > 0 {
		return resp.LastPage
	}
	return items
}
