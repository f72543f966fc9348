package ghclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/huangsam/devscore/internal/contract"
)

// mapError translates go-github errors into the contract taxonomy.
func mapError(err error, what string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &contract.RateLimitError{
			Reason:    "primary rate limit exhausted while fetching " + what,
			Limit:     rateErr.Rate.Limit,
			Remaining: rateErr.Rate.Remaining,
			Reset:     rateErr.Rate.Reset.Time,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		rle := &contract.RateLimitError{Reason: "secondary rate limit hit while fetching " + what}
		if d := abuseErr.GetRetryAfter(); d > 0 {
			rle.Reset = time.Now().Add(d)
		}
		return rle
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", contract.ErrUnauthorized, respErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", contract.ErrUserNotFound, what)
		}
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

// isStatus reports whether err is an API error response with the given status.
func isStatus(err error, status int) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == status
}
