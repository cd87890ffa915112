// Package client talks to the social service over HTTP and keeps an
// optimistic local view of post reactions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/blog-platform/services/social/internal/reaction"
)

// ClientConfig holds retry settings. Retries apply to reads only; a reaction
// mutation toggles, so replaying it could undo the first attempt.
type ClientConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Config     ClientConfig
	CB         *gobreaker.CircuitBreaker
	Log        *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func New(baseURL string, cfg ClientConfig, opts ...Option) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 200 * time.Millisecond
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Config:     cfg,
		Log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewBreaker trips after failureThreshold consecutive server or transport
// failures. Client errors (4xx) never count against the breaker.
func NewBreaker(name string, failureThreshold uint32, openFor time.Duration, log *zap.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// APIError is a non-2xx response decoded from the service error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("social: status %d", e.Status)
	}
	return fmt.Sprintf("social: status %d %s: %s", e.Status, e.Code, e.Message)
}

// React sends the user's like (dislike=false) or dislike for postID and
// returns the server's recounted summary.
func (c *Client) React(ctx context.Context, postID string, dislike bool) (reaction.Summary, error) {
	body, err := json.Marshal(struct {
		Dislike bool `json:"dislike"`
	}{dislike})
	if err != nil {
		return reaction.Summary{}, err
	}
	s, err := doWithBreaker[reaction.Summary](ctx, c, http.MethodPost, reactionsPath(postID), body)
	if err != nil {
		return reaction.Summary{}, err
	}
	return *s, nil
}

// Reactions fetches the authoritative summary for postID.
func (c *Client) Reactions(ctx context.Context, postID string) (reaction.Summary, error) {
	s, err := doWithBreaker[reaction.Summary](ctx, c, http.MethodGet, reactionsPath(postID), nil)
	if err != nil {
		return reaction.Summary{}, err
	}
	return *s, nil
}

func reactionsPath(postID string) string {
	return "/v1/posts/" + url.PathEscape(postID) + "/reactions"
}

func doWithBreaker[T any](ctx context.Context, c *Client, method, path string, body []byte) (*T, error) {
	if c.CB == nil {
		return doJSONWithRetry[T](ctx, c, method, path, body)
	}
	result, err := c.CB.Execute(func() (interface{}, error) {
		return doJSONWithRetry[T](ctx, c, method, path, body)
	})
	if err != nil {
		return nil, err
	}
	return result.(*T), nil
}

func doJSONWithRetry[T any](ctx context.Context, c *Client, method, path string, body []byte) (*T, error) {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.Config.MaxRetries
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.Config.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			c.Log.Debug("retrying request", zap.String("path", path), zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		result, err := doJSON[T](ctx, c, method, path, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		c.Log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func doJSON[T any](ctx context.Context, c *Client, method, path string, body []byte) (*T, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("social: decode %s %s: %w", method, path, err)
	}
	return &out, nil
}

// retryable reports whether err is a server-side or transport failure.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}
