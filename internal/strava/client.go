package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production Strava API root.
const DefaultBaseURL = "https://www.strava.com/api/v3"

// ErrUnauthorized is returned when Strava rejects the token even after
// a forced refresh. Callers should tear down the session.
var ErrUnauthorized = errors.New("strava: unauthorized")

// TokenProvider supplies access tokens and can be told to discard one
// the API rejected.
type TokenProvider interface {
	Token() (*oauth2.Token, error)
	Invalidate()
}

// Client is a Strava API client
type Client struct {
	// BaseURL overrides the API root, for tests.
	BaseURL string

	tokens      TokenProvider
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a new Strava API client
func NewClient(tokens TokenProvider) *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: NewRateLimiter(),
	}
}

// GetActivities fetches one page of the athlete's recent activities
func (c *Client) GetActivities(ctx context.Context, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}

	return activities, nil
}

// GetActivity fetches a single activity including the detail-only
// fields (calories arrive here, not in the summary list)
func (c *Client) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/activities/%d", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var activity Activity
	if err := json.NewDecoder(resp.Body).Decode(&activity); err != nil {
		return nil, fmt.Errorf("decoding activity %d: %w", id, err)
	}

	return &activity, nil
}

// GetActivityPhotos fetches the photos attached to an activity at the
// requested pixel size
func (c *Client) GetActivityPhotos(ctx context.Context, id int64, size int) ([]Photo, error) {
	params := url.Values{}
	params.Set("size", strconv.Itoa(size))
	params.Set("photo_sources", "true")

	resp, err := c.get(ctx, fmt.Sprintf("/activities/%d/photos", id), params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var photos []Photo
	if err := json.NewDecoder(resp.Body).Decode(&photos); err != nil {
		return nil, fmt.Errorf("decoding photos for activity %d: %w", id, err)
	}

	return photos, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

// get performs a request and retries exactly once on 401 after forcing
// a token refresh. A second 401 means the grant itself is gone.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	resp, err := c.do(ctx, path, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.tokens.Invalidate()
		resp, err = c.do(ctx, path, params)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			return nil, ErrUnauthorized
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	reqURL := c.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	return resp, nil
}
