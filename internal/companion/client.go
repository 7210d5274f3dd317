// Package companion is the HTTP client for the Summoning Stone desktop app's local API.
package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/stonedeck/internal/version"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is where the companion app listens.
const DefaultBaseURL = "http://127.0.0.1:7123"

const (
	defaultTimeout  = 3 * time.Second
	defaultCacheTTL = 30 * time.Second
	maxErrorBody    = 4 << 10
)

// Options configures a Client. Zero values take the defaults.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	SFXCacheTTL time.Duration
	HTTPClient  *http.Client
	Now         func() time.Time
	Logger      *slog.Logger
}

// Client talks to the companion app. It is safe for concurrent use.
type Client struct {
	baseURL  string
	timeout  time.Duration
	cacheTTL time.Duration
	http     *http.Client
	now      func() time.Time
	logger   *slog.Logger

	sfxGroup singleflight.Group
	mu       sync.Mutex
	sfxCache *sfxCache
}

type sfxCache struct {
	fetchedAt time.Time
	items     []SoundEffect
}

// New builds a client from opts.
func New(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.SFXCacheTTL <= 0 {
		opts.SFXCacheTTL = defaultCacheTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		timeout:  opts.Timeout,
		cacheTTL: opts.SFXCacheTTL,
		http:     opts.HTTPClient,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// BaseURL returns the normalized base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// fetch performs one request against an absolute URL and returns the body of a
// 2xx response. Every failure comes back as *Error.
func (c *Client) fetch(ctx context.Context, method, target string) ([]byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	started := c.now()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, nil, &Error{Message: err.Error()}
	}
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("User-Agent", version.Short())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, c.transportError(ctx, method, target, requestID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(body))
		if readErr != nil || message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("companion request rejected",
			"method", method,
			"url", target,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return nil, nil, &Error{Status: resp.StatusCode, Message: message}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, c.transportError(ctx, method, target, requestID, err)
	}

	c.logger.Debug("companion request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"bytes", len(body),
		"request_id", requestID,
		"latency_ms", c.now().Sub(started).Milliseconds(),
	)
	return body, resp.Header, nil
}

func (c *Client) transportError(ctx context.Context, method, target, requestID string, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("companion request timed out", "method", method, "url", target, "request_id", requestID)
		return &Error{Message: timeoutMessage, timeout: true}
	}
	c.logger.Warn("companion request failed", "method", method, "url", target, "request_id", requestID, "error", err.Error())
	return &Error{Message: err.Error()}
}

func (c *Client) call(ctx context.Context, method, path string) ([]byte, http.Header, error) {
	return c.fetch(ctx, method, c.baseURL+path)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, _, err := c.call(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Message: fmt.Sprintf("decode %s response: %v", path, err)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string) error {
	_, _, err := c.call(ctx, http.MethodPost, path)
	return err
}
