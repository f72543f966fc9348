package ghclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

const calendarQuery = `query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      totalCommitContributions
      contributionCalendar {
        totalContributions
        weeks { contributionDays { date contributionCount } }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type calendarResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection struct {
				TotalCommitContributions int `json:"totalCommitContributions"`
				ContributionCalendar     struct {
					TotalContributions int `json:"totalContributions"`
					Weeks              []struct {
						ContributionDays []struct {
							Date              string `json:"date"`
							ContributionCount int    `json:"contributionCount"`
						} `json:"contributionDays"`
					} `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// GetContributionCalendar implements the DataSource interface.
func (c *Client) GetContributionCalendar(ctx context.Context, username string) (schema.ContributionCalendar, error) {
	req, err := c.gh.NewRequest("POST", "graphql", graphqlRequest{
		Query:     calendarQuery,
		Variables: map[string]any{"login": username},
	})
	if err != nil {
		return schema.ContributionCalendar{}, fmt.Errorf("failed to build calendar query: %w", err)
	}

	var out calendarResponse
	if _, err := c.gh.Do(ctx, req, &out); err != nil {
		return schema.ContributionCalendar{}, mapError(err, "contribution calendar of "+username)
	}

	if len(out.Errors) > 0 {
		e := out.Errors[0]
		switch e.Type {
		case "NOT_FOUND":
			return schema.ContributionCalendar{}, fmt.Errorf("%w: %s", contract.ErrUserNotFound, username)
		case "RATE_LIMITED":
			return schema.ContributionCalendar{}, &contract.RateLimitError{Reason: "graphql rate limit: " + e.Message}
		}
		return schema.ContributionCalendar{}, fmt.Errorf("calendar query failed: %s", e.Message)
	}
	if out.Data.User == nil {
		return schema.ContributionCalendar{}, fmt.Errorf("%w: %s", contract.ErrUserNotFound, username)
	}

	collection := out.Data.User.ContributionsCollection
	cal := schema.ContributionCalendar{
		TotalContributions: collection.ContributionCalendar.TotalContributions,
		TotalCommits:       collection.TotalCommitContributions,
		Days:               []schema.ContributionDay{},
	}
	for _, week := range collection.ContributionCalendar.Weeks {
		for _, d := range week.ContributionDays {
			date, err := time.Parse(time.DateOnly, strings.TrimSpace(d.Date))
			if err != nil {
				continue
			}
			cal.Days = append(cal.Days, schema.ContributionDay{Date: date, Count: d.ContributionCount})
		}
	}
	return cal, nil
}
