package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskwiz/taskwiz/internal/cli/auth"
)

// credentials attaches and persists the session credential. One implementation
// is chosen per client from its CredentialMode; call sites never branch on it.
type credentials interface {
	// prepare decorates an outgoing request.
	prepare(req *http.Request) error
	// settle observes every response (cookie mode persists the jar here).
	settle(resp *http.Response) error
	// accept receives the token carried in a sign-in/sign-up body.
	accept(token string) error
	// clear forgets the credential locally.
	clear() error
}

// bearerCredentials stores the access token in the keychain and sends it as a
// Bearer header.
type bearerCredentials struct {
	store  auth.Store
	server string
}

func (b *bearerCredentials) prepare(req *http.Request) error {
	token, err := b.store.Load(b.server, auth.KindToken)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil // anonymous request, the backend decides
		}
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	return nil
}

func (b *bearerCredentials) settle(*http.Response) error { return nil }

func (b *bearerCredentials) accept(token string) error {
	if token == "" {
		return fmt.Errorf("server did not return an access token; is the server configured for cookie credentials?")
	}
	if err := b.store.Save(b.server, auth.KindToken, token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}
	return nil
}

func (b *bearerCredentials) clear() error {
	return b.store.Delete(b.server, auth.KindToken)
}

// cookieCredentials lets a cookie jar carry the HttpOnly session cookie and
// mirrors the jar into the keychain so the next CLI invocation starts with it.
type cookieCredentials struct {
	store   auth.Store
	server  string
	baseURL *url.URL
	jar     *cookiejar.Jar
	logger  zerolog.Logger

	mu        sync.Mutex
	persisted string
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newCookieCredentials(store auth.Store, server string, baseURL *url.URL, logger zerolog.Logger) (*cookieCredentials, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	cc := &cookieCredentials{
		store:   store,
		server:  server,
		baseURL: rootURL(baseURL),
		jar:     jar,
		logger:  logger,
	}

	saved, err := store.Load(server, auth.KindCookie)
	switch {
	case errors.Is(err, auth.ErrNotFound):
	case err != nil:
		// A broken keychain must not stop anonymous commands from running.
		logger.Warn().Err(err).Msg("Failed to load saved session cookie")
	default:
		var cookies []storedCookie
		if err := json.Unmarshal([]byte(saved), &cookies); err != nil {
			logger.Warn().Err(err).Msg("Ignoring unreadable saved session cookie")
			break
		}
		httpCookies := make([]*http.Cookie, 0, len(cookies))
		for _, c := range cookies {
			httpCookies = append(httpCookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
		}
		jar.SetCookies(cc.baseURL, httpCookies)
		cc.persisted = saved
	}

	return cc, nil
}

func rootURL(u *url.URL) *url.URL {
	root := *u
	root.Path = "/"
	root.RawPath = ""
	root.RawQuery = ""
	return &root
}

func (c *cookieCredentials) prepare(*http.Request) error { return nil }

func (c *cookieCredentials) settle(*http.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.jar.Cookies(c.baseURL)
	if len(current) == 0 {
		if c.persisted == "" {
			return nil
		}
		c.persisted = ""
		return c.store.Delete(c.server, auth.KindCookie)
	}

	cookies := make([]storedCookie, 0, len(current))
	for _, ck := range current {
		cookies = append(cookies, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	if string(data) == c.persisted {
		return nil
	}
	if err := c.store.Save(c.server, auth.KindCookie, string(data)); err != nil {
		return err
	}
	c.persisted = string(data)
	return nil
}

func (c *cookieCredentials) accept(string) error { return nil }

func (c *cookieCredentials) clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.jar.Cookies(c.baseURL)
	expired := make([]*http.Cookie, 0, len(current))
	for _, ck := range current {
		expired = append(expired, &http.Cookie{Name: ck.Name, Path: "/", MaxAge: -1})
	}
	if len(expired) > 0 {
		c.jar.SetCookies(c.baseURL, expired)
	}

	c.persisted = ""
	return c.store.Delete(c.server, auth.KindCookie)
}
