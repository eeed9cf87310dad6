package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const ConfigFileName = "taskwiz.json"

// Environment variables understood by the CLI. They may also be set in a .env
// file in the working directory.
const (
	EnvAPIURL      = "TASKWIZ_API_URL"
	EnvCredentials = "TASKWIZ_CREDENTIALS"
	EnvServer      = "TASKWIZ_SERVER"
	EnvLogLevel    = "TASKWIZ_LOG_LEVEL"
	EnvEmail       = "TASKWIZ_EMAIL"
	EnvPassword    = "TASKWIZ_PASSWORD"
)

// EnvServerAlias is the alias given to the server described by TASKWIZ_API_URL.
const EnvServerAlias = "env"

// ErrNotFound is returned when no taskwiz.json exists up the directory tree.
var ErrNotFound = errors.New("taskwiz.json not found")

// Server represents a TaskWiz backend configuration
type Server struct {
	Alias string `json:"alias"`
	URL   string `json:"url"`
	// Credentials is "cookie" (default) or "bearer".
	Credentials string `json:"credentials,omitempty"`
	AuthPath    string `json:"auth_path,omitempty"`
	// TasksPath may contain {userId}, e.g. "/api/users/{userId}/tasks".
	TasksPath    string `json:"tasks_path,omitempty"`
	UpdateMethod string `json:"update_method,omitempty"`
	PageSize     int    `json:"page_size,omitempty"`
}

// Validate checks the fields the client cannot default.
func (s *Server) Validate() error {
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("server '%s' has no url. Please edit %s and add the backend URL", s.Alias, ConfigFileName)
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server '%s' has an invalid url '%s': expected http(s)://host[:port]", s.Alias, s.URL)
	}
	switch strings.ToLower(s.Credentials) {
	case "", "cookie", "bearer", "token":
	default:
		return fmt.Errorf("server '%s' has invalid credentials '%s', must be one of: cookie, bearer", s.Alias, s.Credentials)
	}
	switch strings.ToUpper(s.UpdateMethod) {
	case "", "PATCH", "PUT":
	default:
		return fmt.Errorf("server '%s' has invalid update_method '%s', must be PATCH or PUT", s.Alias, s.UpdateMethod)
	}
	if s.PageSize < 0 || s.PageSize > 100 {
		return fmt.Errorf("server '%s' has invalid page_size %d, must be between 1 and 100", s.Alias, s.PageSize)
	}
	return nil
}

// Config represents the CLI configuration file
type Config struct {
	Servers []Server `json:"servers"`
}

// FindConfigFile searches for taskwiz.json in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return FindConfigFileFrom(currentDir)
}

// FindConfigFileFrom searches for taskwiz.json in dir and its parents.
func FindConfigFileFrom(start string) (string, error) {
	dir := start
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, start)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// LoadDotEnv loads .env from the working directory into the process
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// Resolve returns the effective configuration: the project file, with
// TASKWIZ_API_URL replacing its server list and TASKWIZ_CREDENTIALS overriding
// the credential mode of every server.
func Resolve() (*Config, error) {
	LoadDotEnv()

	var cfg *Config
	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg = &Config{Servers: []Server{{Alias: EnvServerAlias, URL: apiURL}}}
	} else {
		loaded, err := LoadFromCurrentDir()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if mode := os.Getenv(EnvCredentials); mode != "" {
		for i := range cfg.Servers {
			cfg.Servers[i].Credentials = mode
		}
	}

	return cfg, nil
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURLOrAlias finds a server by URL (trailing slash ignored) or alias
func (c *Config) GetServerByURLOrAlias(urlOrAlias string) (*Server, error) {
	want := strings.TrimRight(urlOrAlias, "/")
	for i := range c.Servers {
		if strings.TrimRight(c.Servers[i].URL, "/") == want {
			return &c.Servers[i], nil
		}
	}
	for i := range c.Servers {
		if c.Servers[i].Alias == urlOrAlias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", ConfigFileName)
	}
	return &c.Servers[0], nil
}
