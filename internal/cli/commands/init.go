package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskwiz/taskwiz/internal/cli/config"
)

type initOptions struct {
	dir          string
	alias        string
	credentials  string
	authPath     string
	tasksPath    string
	updateMethod string
	pageSize     int
	out          io.Writer
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <url>",
		Short: "Add a TaskWiz server to ./taskwiz.json",
		Long: `Add a TaskWiz server to ./taskwiz.json, creating the file if needed.

Examples:
  $ taskwiz init http://localhost:8000
  $ taskwiz init https://tasks.example.com --alias prod --credentials bearer
  $ taskwiz init https://legacy.example.com --tasks-path '/api/users/{userId}/tasks' --update-method PUT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitWithOptions(args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.alias, "alias", "", "Server alias (default server-N)")
	cmd.Flags().StringVar(&opts.credentials, "credentials", "", "Credential mode: cookie (default) or bearer")
	cmd.Flags().StringVar(&opts.authPath, "auth-path", "", "Auth route prefix (default /auth)")
	cmd.Flags().StringVar(&opts.tasksPath, "tasks-path", "", "Tasks route; may contain {userId} (default /tasks)")
	cmd.Flags().StringVar(&opts.updateMethod, "update-method", "", "PATCH (default) or PUT")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Tasks per page (default 20)")

	return cmd
}

func runInitWithOptions(args []string, opts *initOptions) error {
	serverURL := strings.TrimRight(args[0], "/")

	out := opts.out
	if out == nil {
		out = os.Stdout
	}

	dir := opts.dir
	if dir == "" {
		currentDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = currentDir
	}

	configPath := filepath.Join(dir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{Servers: []config.Server{}}
		isNewConfig = true
	}

	for _, existing := range cfg.Servers {
		if strings.TrimRight(existing.URL, "/") == serverURL {
			fmt.Fprintf(out, "Server %s already exists in %s (%s)\n", serverURL, config.ConfigFileName, existing.Alias)
			return nil
		}
	}

	alias := opts.alias
	if alias == "" {
		alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		return fmt.Errorf("alias '%s' is already used in %s", alias, config.ConfigFileName)
	}

	server := config.Server{
		Alias:        alias,
		URL:          serverURL,
		Credentials:  strings.ToLower(opts.credentials),
		AuthPath:     opts.authPath,
		TasksPath:    opts.tasksPath,
		UpdateMethod: strings.ToUpper(opts.updateMethod),
		PageSize:     opts.pageSize,
	}
	if err := server.Validate(); err != nil {
		return err
	}

	cfg.Servers = append(cfg.Servers, server)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, serverURL, alias)
	} else {
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", serverURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'taskwiz signup' to create an account, or 'taskwiz signin'")
	fmt.Fprintln(out, "  2. Run 'taskwiz add <title>' to create your first task")

	return nil
}
