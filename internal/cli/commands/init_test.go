package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskwiz/taskwiz/internal/cli/config"
)

func runInitIn(t *testing.T, dir string, url string, opts initOptions) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.dir = dir
	opts.out = &out
	err := runInitWithOptions([]string{url}, &opts)
	return out.String(), err
}

// TestInitCommand_NewConfig tests creating a brand new config file
func TestInitCommand_NewConfig(t *testing.T) {
	dir := t.TempDir()

	out, err := runInitIn(t, dir, "http://localhost:8000/", initOptions{})
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if !strings.Contains(out, "✓ Created ./taskwiz.json") {
		t.Errorf("expected created message, got: %s", out)
	}

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("failed to load created config: %v", err)
	}
	if len(cfg.Servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(cfg.Servers))
	}
	if cfg.Servers[0].URL != "http://localhost:8000" {
		t.Errorf("expected trailing slash to be trimmed, got '%s'", cfg.Servers[0].URL)
	}
	// First server should have alias "server-1"
	if cfg.Servers[0].Alias != "server-1" {
		t.Errorf("expected alias 'server-1', got '%s'", cfg.Servers[0].Alias)
	}
}

// TestInitCommand_AppendsServer tests adding a second server to an existing file
func TestInitCommand_AppendsServer(t *testing.T) {
	dir := t.TempDir()

	if _, err := runInitIn(t, dir, "http://localhost:8000", initOptions{}); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	out, err := runInitIn(t, dir, "https://tasks.example.com", initOptions{
		credentials:  "Bearer",
		tasksPath:    "/api/users/{userId}/tasks",
		updateMethod: "put",
		pageSize:     50,
	})
	if err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if !strings.Contains(out, "Found existing taskwiz.json") || !strings.Contains(out, "✓ Added server") {
		t.Errorf("unexpected output: %s", out)
	}

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.Servers))
	}

	second := cfg.Servers[1]
	if second.Alias != "server-2" {
		t.Errorf("expected alias 'server-2', got '%s'", second.Alias)
	}
	if second.Credentials != "bearer" || second.UpdateMethod != "PUT" {
		t.Errorf("expected normalized credentials and method, got %q %q", second.Credentials, second.UpdateMethod)
	}
	if second.TasksPath != "/api/users/{userId}/tasks" || second.PageSize != 50 {
		t.Errorf("unexpected server settings: %+v", second)
	}
}

// TestInitCommand_DuplicateURL tests that re-adding a server is a no-op
func TestInitCommand_DuplicateURL(t *testing.T) {
	dir := t.TempDir()

	if _, err := runInitIn(t, dir, "http://localhost:8000", initOptions{}); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	out, err := runInitIn(t, dir, "http://localhost:8000/", initOptions{})
	if err != nil {
		t.Fatalf("duplicate init should not fail: %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("expected already exists message, got: %s", out)
	}

	cfg, _ := config.Load(filepath.Join(dir, config.ConfigFileName))
	if len(cfg.Servers) != 1 {
		t.Errorf("expected 1 server, got %d", len(cfg.Servers))
	}
}

// TestInitCommand_DuplicateAlias tests that aliases must be unique
func TestInitCommand_DuplicateAlias(t *testing.T) {
	dir := t.TempDir()

	if _, err := runInitIn(t, dir, "http://localhost:8000", initOptions{alias: "dev"}); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	_, err := runInitIn(t, dir, "http://localhost:9000", initOptions{alias: "dev"})
	if err == nil || !strings.Contains(err.Error(), "alias 'dev' is already used") {
		t.Fatalf("expected duplicate alias error, got: %v", err)
	}
}

// TestInitCommand_InvalidSettings tests that nothing is written for bad input
func TestInitCommand_InvalidSettings(t *testing.T) {
	tests := map[string]struct {
		url  string
		opts initOptions
	}{
		"bad scheme":      {url: "ftp://example.com"},
		"bad credentials": {url: "http://localhost:8000", opts: initOptions{credentials: "basic"}},
		"bad method":      {url: "http://localhost:8000", opts: initOptions{updateMethod: "POST"}},
		"bad page size":   {url: "http://localhost:8000", opts: initOptions{pageSize: 500}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if _, err := runInitIn(t, dir, tt.url, tt.opts); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(filepath.Join(dir, config.ConfigFileName)); !os.IsNotExist(err) {
				t.Errorf("expected no config file to be written")
			}
		})
	}
}
