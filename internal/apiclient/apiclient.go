// Package apiclient reads scores from a devscore server through the session cache tier.
package apiclient

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed scan_response.schema.json
var responseSchema []byte

const responseSchemaURL = "mem://schemas/scan_response.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(responseSchema))
		if err != nil {
			compileErr = fmt.Errorf("decode response schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(responseSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("register response schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(responseSchemaURL)
	})
	return compiled, compileErr
}

// Client talks to a devscore server. Successful responses overwrite the session tier;
// failures leave it untouched.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	session contract.Cache
}

// New creates a client for the server at baseURL.
func New(baseURL, token string, session contract.Cache) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	return &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Minute},
		session: session,
	}, nil
}

// Score returns the user's score, from the session tier when present.
func (c *Client) Score(ctx context.Context, username string) (*schema.ScanResponse, error) {
	username = schema.NormalizeUser(username)
	if username == "" {
		return nil, contract.ErrUsernameRequired
	}
	key := schema.CacheKey(schema.CompositeCategory, username)
	if raw, ok := c.session.Get(key); ok {
		var resp schema.ScanResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			return &resp, nil
		}
		c.session.Delete(key)
	}
	return c.fetch(ctx, http.MethodGet, username, "score", nil)
}

// Scan asks the server to scan the user and refreshes the session tier.
func (c *Client) Scan(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error) {
	username := schema.NormalizeUser(req.Username)
	if username == "" {
		return nil, contract.ErrUsernameRequired
	}
	query := url.Values{}
	query.Set("fast", strconv.FormatBool(req.Fast))
	query.Set("fresh", strconv.FormatBool(req.Fresh))
	return c.fetch(ctx, http.MethodPost, username, "scan", query)
}

// Analyze asks the server to complete a fast scan.
func (c *Client) Analyze(ctx context.Context, username string) (*schema.ScanResponse, error) {
	username = schema.NormalizeUser(username)
	if username == "" {
		return nil, contract.ErrUsernameRequired
	}
	return c.fetch(ctx, http.MethodPost, username, "analysis", nil)
}

func (c *Client) fetch(ctx context.Context, method, username, action string, query url.Values) (*schema.ScanResponse, error) {
	endpoint := c.baseURL.JoinPath("api", "v1", "users", username, action)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint.Redacted(), err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	resp, err := decode(body)
	if res.StatusCode != http.StatusOK {
		if err != nil {
			resp = &schema.ScanResponse{Status: schema.FailedStatus}
		}
		return resp, statusError(res, resp)
	}
	if err != nil {
		return nil, err
	}
	c.session.Set(schema.CacheKey(schema.CompositeCategory, username), body)
	return resp, nil
}

// decode validates body against the response schema before unmarshalling it.
func decode(body []byte) (*schema.ScanResponse, error) {
	sch, err := getSchema()
	if err != nil {
		return nil, err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if err := sch.Validate(instance); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	var resp schema.ScanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &resp, nil
}

// statusError maps a failed response back onto the shared sentinel errors.
func statusError(res *http.Response, resp *schema.ScanResponse) error {
	msg := resp.Error
	if msg == "" {
		msg = res.Status
	}
	switch res.StatusCode {
	case http.StatusUnauthorized:
		return contract.ErrUnauthorized
	case http.StatusNotFound:
		if strings.Contains(msg, contract.ErrUserNotFound.Error()) {
			return fmt.Errorf("%w: %s", contract.ErrUserNotFound, msg)
		}
		return fmt.Errorf("%w: %s", contract.ErrNoSnapshot, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", contract.ErrUsernameRequired, msg)
	case http.StatusTooManyRequests:
		rle := &contract.RateLimitError{Reason: msg}
		if resp.RateLimit != nil {
			rle.Limit = resp.RateLimit.Limit
			rle.Remaining = resp.RateLimit.Remaining
			rle.Reset = resp.RateLimit.Reset
		}
		if rle.Reset.IsZero() {
			if secs, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
				rle.Reset = time.Now().Add(time.Duration(secs) * time.Second)
			}
		}
		return rle
	default:
		return errors.New("server error: " + msg)
	}
}
