// Package boardclient talks to the board server: a fasthttp JSON client for the
// REST API and a websocket watcher for session updates.
package boardclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chessboard-demo/pkg/boarddto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	boarddto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("board api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusNotFound
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Start(ctx context.Context, variant, side string) (*boarddto.SessionView, error) {
	var view boarddto.SessionView
	req := boarddto.StartRequest{Variant: variant, Side: side}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions", req, &view, false); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) View(ctx context.Context, id string) (*boarddto.SessionView, error) {
	var view boarddto.SessionView
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, ""), nil, &view, true); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Event(ctx context.Context, id, kind, square string) (*boarddto.EventResponse, error) {
	var resp boarddto.EventResponse
	req := boarddto.EventRequest{Type: kind, Square: square}
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "/events"), req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Click(ctx context.Context, id, square string) (*boarddto.EventResponse, error) {
	return c.Event(ctx, id, boarddto.EventClick, square)
}

// Move clicks the from-square and then the to-square of a coordinate move.
func (c *Client) Move(ctx context.Context, id, move string) (*boarddto.EventResponse, error) {
	move = strings.TrimSpace(move)
	if len(move) != 4 {
		return nil, fmt.Errorf("move must look like e2e4, got %q", move)
	}
	if _, err := c.Click(ctx, id, move[:2]); err != nil {
		return nil, err
	}
	return c.Click(ctx, id, move[2:])
}

func (c *Client) Reset(ctx context.Context, id, side string) (*boarddto.SessionView, error) {
	var view boarddto.SessionView
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "/reset"), boarddto.ResetRequest{Side: side}, &view, false); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Suggest(ctx context.Context, id string) (*boarddto.SessionView, error) {
	var view boarddto.SessionView
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "/suggest"), nil, &view, true); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id, ""), nil, nil, false)
}

func (c *Client) SessionGames(ctx context.Context, id string) (*boarddto.GameList, error) {
	var list boarddto.GameList
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, "/games"), nil, &list, true); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) RecentGames(ctx context.Context, limit int) (*boarddto.GameList, error) {
	var list boarddto.GameList
	path := "/api/games"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &list, true); err != nil {
		return nil, err
	}
	return &list, nil
}

// BoardPNG downloads the rendered board; size is the square size in pixels,
// zero for the server default.
func (c *Client) BoardPNG(ctx context.Context, id string, size int) ([]byte, error) {
	path := sessionPath(id, "/board.png")
	if size > 0 {
		path += "?size=" + strconv.Itoa(size)
	}
	return c.doRaw(ctx, path)
}

func (c *Client) BoardSVG(ctx context.Context, id string) ([]byte, error) {
	return c.doRaw(ctx, sessionPath(id, "/board.svg"))
}

func sessionPath(id, suffix string) string {
	return "/api/sessions/" + url.PathEscape(strings.TrimSpace(id)) + suffix
}

func (c *Client) doRaw(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.do(ctx, fasthttp.MethodGet, path, nil, true, func(resp *fasthttp.Response) error {
		body = append([]byte(nil), resp.Body()...)
		return nil
	})
	return body, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = raw
	}
	return c.do(ctx, method, path, payload, retry, func(resp *fasthttp.Response) error {
		if out == nil || len(resp.Body()) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool, onOK func(*fasthttp.Response) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if payload != nil {
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if jerr := json.Unmarshal(resp.Body(), &apiErr.DomainError); jerr != nil {
				apiErr.Message = truncate(string(resp.Body()), 512)
			}
			if attempt == attempts || !shouldRetry(status, apiErr) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}
		return onOK(resp)
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

// shouldRetry retries gateway errors, and any error the server marks retryable
// except the engine being absent.
func shouldRetry(status int, apiErr *APIError) bool {
	switch status {
	case 502, 504:
		return true
	case 500, 503:
		return apiErr.Code != boarddto.CodeEngine
	}
	return apiErr.Retryable && status == fasthttp.StatusConflict
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
