package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
	"github.com/taskwiz/taskwiz/internal/cli/auth"
)

func newTestClient(t *testing.T, srv *httptest.Server, mode CredentialMode, store auth.Store, opts ...func(*Options)) *Client {
	t.Helper()

	o := Options{
		BaseURL:     srv.URL,
		Credentials: mode,
		Store:       store,
		Logger:      zerolog.Nop(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	c, err := New(o)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "ftp://example.com", Store: auth.NewMemoryStore()})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "https://example.com", UpdateMethod: "POST", Store: auth.NewMemoryStore()})
	assert.Error(t, err)
}

func TestParseCredentialMode(t *testing.T) {
	mode, err := ParseCredentialMode("")
	require.NoError(t, err)
	assert.Equal(t, CredentialsCookie, mode)

	mode, err = ParseCredentialMode("Bearer")
	require.NoError(t, err)
	assert.Equal(t, CredentialsBearer, mode)

	_, err = ParseCredentialMode("basic")
	assert.Error(t, err)
}

func TestBearer_SignInStoresTokenAndAttachesIt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signin":
			var req CredentialsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ada@example.com", req.Email)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Signed in successfully", "access_token": "tok-123"})
		case "/auth/me":
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": map[string]string{"code": "UNAUTHORIZED", "message": "Not authenticated"}})
				return
			}
			writeJSON(w, http.StatusOK, User{ID: "u1", Email: "ada@example.com"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := auth.NewMemoryStore()
	c := newTestClient(t, srv, CredentialsBearer, store)

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsUnauthorized(err))
	assert.Equal(t, "Not authenticated", apierr.Message(err))

	require.NoError(t, c.SignIn(context.Background(), "ada@example.com", "secret1"))

	token, err := store.Load(c.BaseURL(), auth.KindToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "u1", Email: "ada@example.com"}, user)
}

func TestBearer_SignInWithoutTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Signed in successfully"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, CredentialsBearer, auth.NewMemoryStore())
	err := c.SignIn(context.Background(), "ada@example.com", "secret1")
	assert.ErrorContains(t, err, "did not return an access token")
}

func cookieServer(t *testing.T, signoutStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signin":
			http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "cookie-abc", Path: "/", HttpOnly: true})
			writeJSON(w, http.StatusOK, map[string]string{"message": "Signed in successfully"})
		case "/auth/signout":
			http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "", Path: "/", MaxAge: -1})
			w.WriteHeader(signoutStatus)
		case "/auth/me":
			ck, err := r.Cookie("access_token")
			if err != nil || ck.Value != "cookie-abc" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
				return
			}
			writeJSON(w, http.StatusOK, User{ID: "u1", Email: "ada@example.com"})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCookie_SessionSurvivesNewClient(t *testing.T) {
	srv := cookieServer(t, http.StatusOK)
	defer srv.Close()

	store := auth.NewMemoryStore()
	first := newTestClient(t, srv, CredentialsCookie, store)
	require.NoError(t, first.SignIn(context.Background(), "ada@example.com", "secret1"))

	_, err := store.Load(first.BaseURL(), auth.KindCookie)
	require.NoError(t, err, "cookie should be persisted after sign-in")

	// A fresh client (next CLI invocation) starts with the saved cookie.
	second := newTestClient(t, srv, CredentialsCookie, store)
	user, err := second.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	require.NoError(t, second.SignOut(context.Background()))
	_, err = store.Load(second.BaseURL(), auth.KindCookie)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = second.CurrentUser(context.Background())
	assert.True(t, apierr.IsUnauthorized(err))
}

func TestCookie_SetHTTPClientLeavesCallerClientAlone(t *testing.T) {
	srv := cookieServer(t, http.StatusOK)
	defer srv.Close()

	shared := &http.Client{Timeout: 5 * time.Second}
	c := newTestClient(t, srv, CredentialsCookie, auth.NewMemoryStore())
	c.SetHTTPClient(shared)

	require.NoError(t, c.SignIn(context.Background(), "ada@example.com", "secret1"))
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	assert.Nil(t, shared.Jar, "the session cookie jar stays private to the client")
	assert.Equal(t, 5*time.Second, shared.Timeout)
}

func TestCookie_SignOutClearsLocallyWhenBackendFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signin":
			http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "cookie-abc", Path: "/"})
			writeJSON(w, http.StatusOK, map[string]string{})
		case "/auth/signout":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
		}
	}))
	defer srv.Close()

	store := auth.NewMemoryStore()
	c := newTestClient(t, srv, CredentialsCookie, store)
	require.NoError(t, c.SignIn(context.Background(), "ada@example.com", "secret1"))

	err := c.SignOut(context.Background())
	require.Error(t, err)
	assert.Equal(t, "database unavailable", apierr.Message(err))

	_, err = store.Load(c.BaseURL(), auth.KindCookie)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestErrorDecoding(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "structured detail",
			status:   http.StatusConflict,
			body:     `{"detail": {"code": "EMAIL_EXISTS", "message": "Email address is already registered", "details": {"email": "a@b.co"}}}`,
			wantCode: "EMAIL_EXISTS",
			wantMsg:  "Email address is already registered",
		},
		{
			name:    "string detail",
			status:  http.StatusNotFound,
			body:    `{"detail": "Task not found"}`,
			wantMsg: "Task not found",
		},
		{
			name:    "validation list detail",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail": [{"loc": ["body", "title"], "msg": "field required"}]}`,
			wantMsg: "field required",
		},
		{
			name:    "error field",
			status:  http.StatusBadRequest,
			body:    `{"error": "Invalid request"}`,
			wantMsg: "Invalid request",
		},
		{
			name:    "no body",
			status:  http.StatusServiceUnavailable,
			body:    ``,
			wantMsg: "service unavailable",
		},
		{
			name:    "non-json body",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantMsg: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv, CredentialsBearer, auth.NewMemoryStore())
			_, err := c.GetTask(context.Background(), "t1")

			var httpErr *apierr.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url, Credentials: CredentialsBearer, Store: auth.NewMemoryStore(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = c.ListTasks(context.Background(), 1, 20)
	var netErr *apierr.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "request failed", apierr.Message(err))
}

func TestTasks_FlatPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tasks":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "5", r.URL.Query().Get("page_size"))
			writeJSON(w, http.StatusOK, map[string]any{
				"items":       []Task{{ID: "t1", Title: "Buy milk"}},
				"total":       6,
				"page":        2,
				"page_size":   5,
				"total_pages": 2,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/tasks":
			var req TaskCreate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusCreated, Task{ID: "t2", Title: req.Title, Description: req.Description})
		case r.Method == http.MethodPatch && r.URL.Path == "/tasks/t2":
			var raw map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			assert.Equal(t, map[string]any{"is_completed": true}, raw, "unset fields must not be sent")
			writeJSON(w, http.StatusOK, Task{ID: "t2", Title: "Buy milk", IsCompleted: true})
		case r.Method == http.MethodDelete && r.URL.Path == "/tasks/t2":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, CredentialsBearer, auth.NewMemoryStore())
	ctx := context.Background()

	page, err := c.ListTasks(ctx, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)

	desc := "2 litres"
	created, err := c.CreateTask(ctx, TaskCreate{Title: "Buy milk", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "t2", created.ID)
	require.NotNil(t, created.Description)
	assert.Equal(t, "2 litres", *created.Description)

	done := true
	updated, err := c.UpdateTask(ctx, "t2", TaskPatch{IsCompleted: &done})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)

	require.NoError(t, c.DeleteTask(ctx, "t2"))
}

func TestTasks_UserScopedPathsAndPut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/u1/tasks/t9", r.URL.Path)
		writeJSON(w, http.StatusOK, Task{ID: "t9", Title: "renamed"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, CredentialsBearer, auth.NewMemoryStore(), func(o *Options) {
		o.TasksPath = "/api/users/{userId}/tasks"
		o.UpdateMethod = "put"
	})

	title := "renamed"
	_, err := c.UpdateTask(context.Background(), "t9", TaskPatch{Title: &title})
	require.Error(t, err)
	assert.True(t, apierr.IsValidation(err))
	assert.Equal(t, int32(0), calls.Load(), "no request without a user scope")

	c.SetUserScope("u1")
	task, err := c.UpdateTask(context.Background(), "t9", TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.Title)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuthPathPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		writeJSON(w, http.StatusOK, User{ID: "u1", Email: "ada@example.com"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, CredentialsCookie, auth.NewMemoryStore(), func(o *Options) {
		o.AuthPath = "api/auth/"
	})
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
}
