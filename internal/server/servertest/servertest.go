// Package servertest runs the reference server on a throwaway SQLite
// database for tests in other packages.
package servertest

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskwiz/taskwiz/internal/config"
	"github.com/taskwiz/taskwiz/internal/database"
	"github.com/taskwiz/taskwiz/internal/server"
)

// Config returns a server configuration suitable for tests.
func Config() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        "0",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			ExpirationMinutes: 60,
		},
		Logging: config.LoggingConfig{Level: "disabled", Format: "json"},
	}
}

// NewServer builds a server backed by a fresh database under t.TempDir().
func NewServer(t *testing.T) *server.Server {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "taskwiz.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	return server.NewWithDB(Config(), db, zerolog.Nop(), "test")
}

// Start serves a fresh server over HTTP until the test ends.
func Start(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(NewServer(t).Handler())
	t.Cleanup(ts.Close)
	return ts
}
