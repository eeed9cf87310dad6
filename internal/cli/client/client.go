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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
	"github.com/taskwiz/taskwiz/internal/cli/auth"
)

// CredentialMode selects how the client proves the session to the backend.
type CredentialMode string

const (
	// CredentialsCookie relies on the HttpOnly access_token cookie set by sign-in.
	CredentialsCookie CredentialMode = "cookie"
	// CredentialsBearer sends "Authorization: Bearer <token>" on every request.
	CredentialsBearer CredentialMode = "bearer"
)

const (
	DefaultAuthPath  = "/auth"
	DefaultTasksPath = "/tasks"
	DefaultTimeout   = 30 * time.Second

	// UserIDPlaceholder is expanded in TasksPath with the signed-in user's id.
	UserIDPlaceholder = "{userId}"

	maxErrorBody = 1 << 20
)

// ParseCredentialMode accepts "cookie" or "bearer" (case-insensitive); empty means cookie.
func ParseCredentialMode(s string) (CredentialMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CredentialsCookie):
		return CredentialsCookie, nil
	case string(CredentialsBearer), "token":
		return CredentialsBearer, nil
	default:
		return "", fmt.Errorf("invalid credential mode '%s', must be one of: cookie, bearer", s)
	}
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Credentials  CredentialMode
	AuthPath     string // defaults to DefaultAuthPath
	TasksPath    string // defaults to DefaultTasksPath; may contain UserIDPlaceholder
	UpdateMethod string // PATCH (default) or PUT
	Timeout      time.Duration
	Store        auth.Store // defaults to auth.Default
	Logger       zerolog.Logger
}

// Client represents an HTTP client for the TaskWiz API
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	creds        credentials
	authPath     string
	tasksPath    string
	updateMethod string
	logger       zerolog.Logger

	mu     sync.RWMutex
	userID string
}

// New creates a new API client
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL '%s': scheme must be http or https", opts.BaseURL)
	}

	mode := opts.Credentials
	if mode == "" {
		mode = CredentialsCookie
	}
	store := opts.Store
	if store == nil {
		store = auth.Default
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	updateMethod := strings.ToUpper(opts.UpdateMethod)
	switch updateMethod {
	case "":
		updateMethod = http.MethodPatch
	case http.MethodPatch, http.MethodPut:
	default:
		return nil, fmt.Errorf("invalid update method '%s', must be PATCH or PUT", opts.UpdateMethod)
	}

	c := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		authPath:     normalizePath(opts.AuthPath, DefaultAuthPath),
		tasksPath:    normalizePath(opts.TasksPath, DefaultTasksPath),
		updateMethod: updateMethod,
		logger:       opts.Logger,
	}

	serverKey := baseURL.String()
	switch mode {
	case CredentialsCookie:
		creds, err := newCookieCredentials(store, serverKey, baseURL, opts.Logger)
		if err != nil {
			return nil, err
		}
		c.creds = creds
		c.httpClient.Jar = creds.jar
	case CredentialsBearer:
		c.creds = &bearerCredentials{store: store, server: serverKey}
	default:
		return nil, fmt.Errorf("invalid credential mode '%s'", mode)
	}

	return c, nil
}

// SetHTTPClient uses a copy of httpClient for requests. In cookie mode the copy
// carries this client's jar; httpClient itself is left untouched.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	hc := *httpClient
	if cc, ok := c.creds.(*cookieCredentials); ok {
		hc.Jar = cc.jar
	}
	c.httpClient = &hc
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetUserScope records the signed-in user's id for user-scoped task paths.
// An empty id clears the scope.
func (c *Client) SetUserScope(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

func (c *Client) userScope() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// ClearCredentials forgets the stored token or cookies without calling the backend.
func (c *Client) ClearCredentials() error {
	return c.creds.clear()
}

func normalizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

// do sends one request and decodes a JSON response into out (when non-nil).
// Every failure is returned as an apierr value.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := fmt.Sprintf("%s %s", method, path)

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	target := c.baseURL.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.creds.prepare(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Msg("Request failed")
		return &apierr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")

	if err := c.creds.settle(resp); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist session cookie")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeHTTPError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &apierr.HTTPError{Status: resp.StatusCode, Message: "empty response from server"}
		}
		return &apierr.HTTPError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

// errorBody covers the shapes backends use for error payloads:
//
//	{"detail": {"code": "...", "message": "..."}}
//	{"detail": "..."}
//	{"detail": [{"msg": "..."}]}
//	{"error": "..."}
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeHTTPError(resp *http.Response) error {
	httpErr := &apierr.HTTPError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		httpErr.Code, httpErr.Message = parseDetail(body.Detail)
		if httpErr.Message == "" {
			httpErr.Message = body.Error
		}
		if httpErr.Message == "" {
			httpErr.Message = body.Message
		}
	}

	if httpErr.Message == "" {
		httpErr.Message = apierr.StatusMessage(resp.StatusCode)
	}
	return httpErr
}

func parseDetail(raw json.RawMessage) (code, message string) {
	if len(raw) == 0 {
		return "", ""
	}

	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &structured) == nil && structured.Message != "" {
		return structured.Code, structured.Message
	}

	var text string
	if json.Unmarshal(raw, &text) == nil {
		return "", text
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return "", list[0].Msg
	}

	return "", ""
}
