package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
	"github.com/taskwiz/taskwiz/internal/cli/auth"
	"github.com/taskwiz/taskwiz/internal/cli/client"
	"github.com/taskwiz/taskwiz/internal/cli/config"
	"github.com/taskwiz/taskwiz/internal/cli/serverselect"
	"github.com/taskwiz/taskwiz/internal/logger"
	"github.com/taskwiz/taskwiz/internal/session"
	"github.com/taskwiz/taskwiz/internal/tasklist"
)

// Option overrides how a command finds its server and talks to it. Tests use
// these to point commands at an httptest server with an in-memory store.
type Option func(*runOptions)

type runOptions struct {
	server      *config.Server
	serverAlias string
	store       auth.Store
	httpClient  *http.Client
	out         io.Writer
	errOut      io.Writer
	in          io.Reader
	logger      *zerolog.Logger
	prompter    prompter
	interactive bool
	pageSize    int
}

// WithServer skips config resolution and uses server directly.
func WithServer(server *config.Server) Option {
	return func(o *runOptions) { o.server = server }
}

// WithServerAlias selects a configured server by alias or URL.
func WithServerAlias(alias string) Option {
	return func(o *runOptions) { o.serverAlias = alias }
}

// WithStore replaces the OS keychain.
func WithStore(store auth.Store) Option {
	return func(o *runOptions) { o.store = store }
}

// WithHTTPClient replaces the HTTP client (the cookie jar is kept).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *runOptions) { o.httpClient = httpClient }
}

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option {
	return func(o *runOptions) { o.out = w }
}

// WithErrOutput redirects warnings and hints.
func WithErrOutput(w io.Writer) Option {
	return func(o *runOptions) { o.errOut = w }
}

// WithInput replaces stdin.
func WithInput(r io.Reader) Option {
	return func(o *runOptions) { o.in = r }
}

// WithLogger replaces the stderr logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *runOptions) { o.logger = &l }
}

func withPrompter(p prompter) Option {
	return func(o *runOptions) {
		o.prompter = p
		o.interactive = true
	}
}

func withPageSize(n int) Option {
	return func(o *runOptions) { o.pageSize = n }
}

func newRunOptions(opts []Option) *runOptions {
	ro := &runOptions{
		store:  auth.Default,
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     os.Stdin,
	}
	for _, opt := range opts {
		opt(ro)
	}
	if ro.logger == nil {
		l := logger.NewCLI(logLevel(false))
		ro.logger = &l
	}
	if ro.prompter == nil {
		ro.prompter = promptuiPrompter{}
	}
	return ro
}

func logLevel(verbose bool) string {
	if verbose {
		return "debug"
	}
	if level := os.Getenv(config.EnvLogLevel); level != "" {
		return level
	}
	return "warn"
}

// globalOptions turns the root command's persistent flags into options.
func globalOptions(cmd *cobra.Command) []Option {
	config.LoadDotEnv()

	var opts []Option
	if alias, _ := cmd.Flags().GetString("server"); alias != "" {
		opts = append(opts, WithServerAlias(alias))
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	opts = append(opts, WithLogger(logger.NewCLI(logLevel(verbose))))
	return opts
}

// resolveServer finds the server for this invocation: explicit option, then
// flag or TASKWIZ_SERVER, then the user's selection, then the only one, then a
// prompt.
func resolveServer(ro *runOptions) (*config.Server, error) {
	if ro.server != nil {
		if err := ro.server.Validate(); err != nil {
			return nil, err
		}
		return ro.server, nil
	}

	cfg, err := config.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'taskwiz init <url>' to create a configuration file or set %s", err, config.EnvAPIURL)
	}

	alias := ro.serverAlias
	if alias == "" {
		alias = os.Getenv(config.EnvServer)
	}

	server, err := serverselect.ResolveServer(cfg, alias, ro.errOut)
	if err != nil {
		return nil, err
	}
	if err := server.Validate(); err != nil {
		return nil, err
	}
	return server, nil
}

// app is the per-invocation object graph: one client, one session manager and
// one task manager, wired together.
type app struct {
	*runOptions
	server  *config.Server
	client  *client.Client
	session *session.Manager
	tasks   *tasklist.Manager
}

func newApp(ro *runOptions) (*app, error) {
	server, err := resolveServer(ro)
	if err != nil {
		return nil, err
	}

	mode, err := client.ParseCredentialMode(server.Credentials)
	if err != nil {
		return nil, err
	}

	apiClient, err := client.New(client.Options{
		BaseURL:      server.URL,
		Credentials:  mode,
		AuthPath:     server.AuthPath,
		TasksPath:    server.TasksPath,
		UpdateMethod: server.UpdateMethod,
		Store:        ro.store,
		Logger:       *ro.logger,
	})
	if err != nil {
		return nil, err
	}
	if ro.httpClient != nil {
		apiClient.SetHTTPClient(ro.httpClient)
	}

	a := &app{runOptions: ro, server: server, client: apiClient}

	a.session = session.New(apiClient, session.Options{
		Logger: *ro.logger,
		OnSignedOut: func() {
			fmt.Fprintln(ro.errOut, "Run 'taskwiz signin' to sign in again.")
		},
	})
	a.session.Subscribe(func(s session.State) {
		if s.User != nil {
			apiClient.SetUserScope(s.User.ID)
		} else {
			apiClient.SetUserScope("")
		}
	})

	pageSize := ro.pageSize
	if pageSize <= 0 {
		pageSize = server.PageSize
	}
	a.tasks = tasklist.New(apiClient, tasklist.Options{
		Logger:         *ro.logger,
		PageSize:       pageSize,
		OnUnauthorized: a.session.Invalidate,
	})

	return a, nil
}

// requireUser bootstraps the session and fails unless someone is signed in.
func (a *app) requireUser(ctx context.Context) (*client.User, error) {
	if err := a.session.Bootstrap(ctx); err != nil {
		var netErr *apierr.NetworkError
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("failed to reach %s: %w", a.server.URL, err)
		}
		if apierr.IsUnauthorized(err) {
			return nil, session.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}
	return a.session.RequireUser()
}

// loadTask brings one task into the mirror so it can be updated or removed.
func (a *app) loadTask(ctx context.Context, id string) (*client.Task, error) {
	task, err := a.tasks.Get(ctx, id)
	if err != nil {
		if apierr.HasStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("task '%s' not found", id)
		}
		return nil, err
	}
	return task, nil
}

func mirrorPage(m tasklist.Mirror) client.TaskPage {
	return client.TaskPage{
		Items:      m.Items,
		Total:      m.Total,
		Page:       m.Page,
		PageSize:   m.PageSize,
		TotalPages: m.TotalPages,
	}
}
