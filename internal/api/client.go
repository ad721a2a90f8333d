// Package api is the bearer-authenticated JSON client for the remote task service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/auth"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/model"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	tasksPath       = "/api/tasks"
	maxErrorBody    = 64 << 10
	requestIDHeader = "X-Request-ID"
)

type Client struct {
	baseURL        string
	http           *http.Client
	tokens         auth.TokenSource
	onAuthRequired func()
	logger         *log.Logger
}

type Options struct {
	BaseURL string
	Tokens  auth.TokenSource

	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration

	// OnAuthRequired runs whenever the token is missing or rejected, before the
	// typed auth error is returned. Views use it to send the user to sign-in.
	OnAuthRequired func()

	Logger *log.Logger
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http:           hc,
		tokens:         opts.Tokens,
		onAuthRequired: opts.OnAuthRequired,
		logger:         logger,
	}
}

func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Task{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPost, tasksPath, in, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id int64, up model.TaskUpdate) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPut, taskPath(id), up, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) Toggle(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id)+"/complete", nil, &out)
	return out, err
}

func taskPath(id int64) string {
	return tasksPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) authRequired() {
	if c.onAuthRequired != nil {
		c.onAuthRequired()
	}
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	return c.tokens.Token(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		c.logger.Warn("token lookup failed", "err", err)
		tok = ""
	}
	if tok == "" {
		c.authRequired()
		return apperr.NotAuthenticatedError()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return apperr.NetworkError(err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "request_id", reqID, "took", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		c.authRequired()
		return apperr.SessionExpiredError()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := apperr.FromStatus(resp.StatusCode, errorDetail(raw))
		c.logger.Warn("request rejected", "method", method, "path", path, "status", resp.StatusCode, "request_id", reqID, "detail", e.Message)
		return e
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.Unknown, "empty response body", apperr.MsgUnexpected)
		}
		return &apperr.Error{Kind: apperr.Unknown, Status: resp.StatusCode, Message: "decode response", UserMessage: apperr.MsgUnexpected, Err: err}
	}
	return nil
}

// errorDetail pulls a human-readable explanation out of an error body. It accepts
// {"detail": "..."}, {"message": "..."}, {"error": "..."}, validation lists of the
// form {"detail": [{"msg": "..."}]}, and falls back to the raw text.
func errorDetail(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(raw)
	}
	for _, k := range []string{"detail", "message", "error"} {
		switch v := body[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case []any:
			var msgs []string
			for _, x := range v {
				if m, ok := x.(map[string]any); ok {
					if s, ok := m["msg"].(string); ok && s != "" {
						msgs = append(msgs, s)
					}
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return ""
}
