package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// Client issues the HTTP calls of the conversion protocol. It never retries.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables it.
func WithRateLimit(perSecond int) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = nil
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := tool.ParseServerURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:       base,
		httpClient: tool.NewHTTPClient(tool.DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// DownloadURL builds the artifact URL for a session. No network call is made.
func (c *Client) DownloadURL(sessionId string) string {
	return tool.BuildDownloadURL(c.base, sessionId)
}

// do waits on the limiter and sends req. Network failures become a
// TransportError with StatusCode 0.
func (c *Client) do(ctx context.Context, req *http.Request, what string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s cancelled: %w", what, err)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s cancelled: %w", what, ctx.Err())
		}
		return nil, &TransportError{Message: fmt.Sprintf("failed to send %s request: %v", what, err)}
	}
	return resp, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
	}
}

// readBody reads at most 1 MiB of a JSON response.
func readBody(resp *http.Response) []byte {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		tool.DefaultLogger.Warnf("Failed to read response body: %v", err)
	}
	return body
}

// errorFromResponse turns a failed response into a TransportError, preferring
// the server's {error} message over fallback.
func errorFromResponse(resp *http.Response, body []byte, fallback string) *TransportError {
	msg := fallback
	if len(body) > 0 {
		var eb types.ErrorBody
		if err := sonic.Unmarshal(body, &eb); err == nil && eb.Error != "" {
			msg = eb.Error
		}
	}
	return &TransportError{StatusCode: resp.StatusCode, Message: msg}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
