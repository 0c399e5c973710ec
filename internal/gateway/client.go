// Package gateway is the HTTP client for the remote mail API. The rest of
// the client is agnostic to the wire format: fetch payloads are handed to the
// normalizer as-is, and transport failures surface as plain errors for the
// collection store to translate into its own failure policy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nandhan/webmail/internal/models"
)

// ErrUnauthorized is returned when the API rejects the bearer token. The
// client also invokes its OnUnauthorized hook so the session can be
// invalidated, mirroring a forced redirect to the login page.
var ErrUnauthorized = errors.New("gateway: unauthorized")

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Client talks to the mail API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
}

// NewClient creates a gateway client for the given base URL. tokens may be
// nil for unauthenticated use (login, register).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// SetOnUnauthorized registers a hook invoked whenever the API answers 401 or
// 403 to an authenticated request.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// SetTokenSource attaches the token source after construction. The session
// manager and the client reference each other (the manager logs in through
// the client, the client signs requests with the manager's token), so one
// side has to be wired late.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// apiResponse is the envelope the API wraps every response in.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// do executes one request and returns the data payload of the envelope.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Printf("gateway: %s %s returned %d, invalidating session", method, path, resp.StatusCode)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, errorMessage(raw))
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Not every endpoint wraps its payload; fall back to the bare body.
		return raw, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return raw, nil
}

// errorMessage pulls a human-readable message out of an error response body.
func errorMessage(raw []byte) string {
	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "no response body"
}

// Login exchanges credentials for a bearer token and user identity.
func (c *Client) Login(ctx context.Context, email, password string) (string, models.User, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", models.User{}, err
	}

	var result struct {
		Token    string       `json:"token"`
		User     *models.User `json:"user"`
		Email    string       `json:"email"`
		Username string       `json:"username"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", models.User{}, fmt.Errorf("failed to decode login response: %w", err)
	}
	if result.Token == "" {
		return "", models.User{}, fmt.Errorf("login response carried no token")
	}

	user := models.User{Email: result.Email, Username: result.Username}
	if result.User != nil {
		user = *result.User
	}
	return result.Token, user, nil
}

// Register creates a new account. The caller logs in separately afterwards.
func (c *Client) Register(ctx context.Context, email, password, username string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	})
	return err
}

// FetchInbox fetches a batch of messages. The payload is returned raw because
// its shape (bare array vs. {"emails": [...]}) is not guaranteed; the
// normalizer handles both.
func (c *Client) FetchInbox(ctx context.Context, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/api/mail/inbox?limit=%d", limit), nil)
}

// SendRequest is the payload for SendMail.
type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	CC      string `json:"cc,omitempty"`
	BCC     string `json:"bcc,omitempty"`
}

// SendMail submits a message for delivery.
func (c *Client) SendMail(ctx context.Context, req SendRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/api/mail/send", req)
	return err
}

// MarkRead tells the server a message was opened. Callers treat this as
// best-effort and never roll back the local read flag on failure.
func (c *Client) MarkRead(ctx context.Context, uid string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/mail/"+uid+"/read", nil)
	return err
}
