package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/session"
	"go.uber.org/zap"
)

var (
	ErrAuth              = errors.New("authentication required")
	ErrForbidden         = errors.New("forbidden")
	ErrNetwork           = errors.New("network error")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrServer            = errors.New("server error")
)

// APIError is a failed response. errors.Is matches it against the
// sentinels above.
type APIError struct {
	Status  int
	Code    string
	Message string
	Data    json.RawMessage
	Local   bool // raised by the client; the request was never sent
}

func (e *APIError) Error() string {
	if e.Local {
		return "api: not submitted: " + e.Message
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case orders.CodeValidation:
		return ErrValidation
	case orders.CodeInsufficientStock:
		return ErrInsufficientStock
	case orders.CodeInvalidTransition:
		return ErrInvalidTransition
	case orders.CodeConflict:
		return ErrConflict
	case orders.CodeNotFound:
		return ErrNotFound
	case orders.CodeUnauthorized:
		return ErrAuth
	case orders.CodeForbidden:
		return ErrForbidden
	}
	switch {
	case e.Status == http.StatusBadRequest:
		return ErrValidation
	case e.Status == http.StatusUnauthorized:
		return ErrAuth
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	}
	return ErrServer
}

// StockDetails lists the rejected lines of an insufficient-stock failure.
func (e *APIError) StockDetails() []orders.StockRejectedDetail {
	if e.Code != orders.CodeInsufficientStock {
		return nil
	}
	var d []orders.StockRejectedDetail
	_ = json.Unmarshal(e.Data, &d)
	return d
}

// Field names the offending input of a validation failure, if any.
func (e *APIError) Field() string {
	var d struct {
		Field string `json:"field"`
	}
	_ = json.Unmarshal(e.Data, &d)
	return d.Field
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Code    string           `json:"code"`
	Data    json.RawMessage  `json:"data"`
	Meta    *orders.PageMeta `json:"meta"`
}

// Client talks to the WMS API. With a Session attached it sends the access
// token, refreshes it once on a 401 and retries the call; if the refresh
// fails the session is cleared and ErrAuth returned.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *session.Session
	Log     *zap.Logger
}

func New(baseURL string, sess *session.Session, log *zap.Logger) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Session: sess,
		Log:     log,
	}
	if sess != nil {
		sess.SetRefresher(c.refreshTokens)
	}
	return c
}

func (c *Client) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Client) http() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

// endpoints that never trigger a silent refresh
var noRefresh = map[string]bool{
	"/auth/login":         true,
	"/auth/refresh_token": true,
	"/auth/logout":        true,
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*orders.PageMeta, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
	}

	env, status, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && !noRefresh[path] && c.Session != nil && c.Session.RefreshToken() != "" {
		if rerr := c.Session.Refresh(ctx); rerr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log().Info("silent refresh failed", zap.String("path", path), zap.Error(rerr))
			return nil, fmt.Errorf("%w: %v", ErrAuth, rerr)
		}
		if env, status, err = c.send(ctx, method, path, query, payload); err != nil {
			return nil, err
		}
	}

	if status >= 400 || !env.Success {
		return nil, &APIError{Status: status, Code: env.Code, Message: env.Message, Data: env.Data}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return env.Meta, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (envelope, int, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return envelope{}, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Session != nil {
		if tok := c.Session.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return envelope{}, 0, ctx.Err()
		}
		return envelope{}, 0, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return envelope{Message: resp.Status}, resp.StatusCode, nil
		}
		return envelope{}, resp.StatusCode, fmt.Errorf("%w: decoding %s %s: %v", ErrNetwork, method, path, err)
	}
	return env, resp.StatusCode, nil
}

type authResult struct {
	Token session.Tokens `json:"token"`
	User  orders.User    `json:"user"`
}

func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (session.Tokens, error) {
	var res authResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/refresh_token", nil, map[string]string{"refresh_token": refreshToken}, &res); err != nil {
		return session.Tokens{}, err
	}
	return res.Token, nil
}
