package fantia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	fterrors "github.com/Rusty-starlightExpress/fantiadl/pkg/errors"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ratelimit"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/retry"
	"github.com/goccy/go-json"
	"golang.org/x/net/publicsuffix"
)

// Client talks to fantia.jp with a session cookie
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	limiter    ratelimit.Limiter
	policy     retry.Policy
	logger     logger.Logger
}

// ClientOptions configures a Client
type ClientOptions struct {
	BaseURL   string
	SessionID string
	UserAgent string
	Timeout   time.Duration
	Limiter   ratelimit.Limiter
	Retry     retry.Policy
	Logger    logger.Logger
}

// NewClient creates a client whose cookie jar carries the _session_id cookie
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = opts.Logger
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if opts.SessionID != "" {
		jar.SetCookies(base, []*http.Cookie{{
			Name:  "_session_id",
			Value: opts.SessionID,
			Path:  "/",
		}})
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "fantiadl"
	}

	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
		},
		baseURL: opts.BaseURL,
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept-Language": "ja,en-US;q=0.9,en;q=0.8",
		},
		limiter: opts.Limiter,
		policy:  opts.Retry,
		logger:  opts.Logger,
	}, nil
}

// BaseURL returns the site root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request after waiting on the limiter. Non-2xx responses are
// closed and returned as typed errors.
func (c *Client) do(ctx context.Context, rawURL string, extra map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fterrors.New(fterrors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return nil, &fterrors.Error{
			Type:    fterrors.ErrorTypeNetwork,
			Message: err.Error(),
			URL:     rawURL,
		}
	}

	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, elapsed)

	if apiErr := fterrors.FromStatusCode(resp.StatusCode, rawURL); apiErr != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		switch {
		case apiErr.Type == fterrors.ErrorTypeRateLimit:
			logger.LogRateLimit(c.logger, rawURL, 0)
		case fterrors.IsRetryableStatusCode(resp.StatusCode):
			c.logger.DebugWithFields("Transient HTTP status", map[string]interface{}{
				"url":    rawURL,
				"status": resp.StatusCode,
			})
		}
		return nil, apiErr
	}

	return resp, nil
}

// GetDocument fetches an HTML page
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	return retry.DoWithResult(ctx, c.policy, func(ctx context.Context) (*goquery.Document, error) {
		resp, err := c.do(ctx, rawURL, nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, &fterrors.Error{Type: fterrors.ErrorTypeNetwork, Message: fmt.Sprintf("failed to read page: %v", err), URL: rawURL}
		}
		return doc, nil
	})
}

// GetJSON fetches an API endpoint and decodes it into target
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, target interface{}) error {
	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		resp, err := c.do(ctx, rawURL, headers)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &fterrors.Error{Type: fterrors.ErrorTypeNetwork, Message: fmt.Sprintf("failed to read response body: %v", err), URL: rawURL}
		}

		if err := json.Unmarshal(body, target); err != nil {
			preview := string(body)
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
				"url":          rawURL,
				"error":        err.Error(),
				"body_preview": preview,
			})
			return &fterrors.Error{Type: fterrors.ErrorTypeParsing, Code: resp.StatusCode, Message: fmt.Sprintf("failed to parse JSON: %v", err), URL: rawURL}
		}
		return nil
	})
}

// Fetch streams rawURL into sink, retrying the whole transfer on transient failures
func (c *Client) Fetch(ctx context.Context, rawURL string, sink func(r io.Reader) error) error {
	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		resp, err := c.do(ctx, rawURL, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := sink(resp.Body); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &fterrors.Error{Type: fterrors.ErrorTypeNetwork, Message: err.Error(), URL: rawURL}
		}
		return nil
	})
}

// CSRFToken reads the csrf-token meta tag of a post page; the post API requires it
func (c *Client) CSRFToken(ctx context.Context, postID string) (string, error) {
	doc, err := c.GetDocument(ctx, PostPageURL(c.baseURL, postID))
	if err != nil {
		return "", err
	}

	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		return "", fterrors.New(fterrors.ErrorTypeParsing, 0, "csrf token not found on post %s", postID)
	}
	return token, nil
}
