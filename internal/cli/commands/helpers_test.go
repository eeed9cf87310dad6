package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/taskwiz/taskwiz/internal/cli/auth"
	"github.com/taskwiz/taskwiz/internal/cli/config"
	"github.com/taskwiz/taskwiz/internal/server/servertest"
)

// testEnv runs commands against a real reference server with an in-memory
// credential store shared across invocations, like the keychain would be.
type testEnv struct {
	server *config.Server
	store  auth.Store
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvEmail, "")
	t.Setenv(config.EnvPassword, "")

	ts := servertest.Start(t)
	return &testEnv{
		server: &config.Server{Alias: "test", URL: ts.URL},
		store:  auth.NewMemoryStore(),
	}
}

func (e *testEnv) opts(extra ...Option) []Option {
	return append([]Option{
		WithServer(e.server),
		WithStore(e.store),
		WithOutput(&e.out),
		WithErrOutput(&e.errOut),
		WithInput(strings.NewReader("")),
		WithLogger(zerolog.Nop()),
	}, extra...)
}

// reset clears captured output between invocations
func (e *testEnv) reset() {
	e.out.Reset()
	e.errOut.Reset()
}

func (e *testEnv) signUp(t *testing.T, email string) {
	t.Helper()
	if err := runSignIn(context.Background(), email, "secret1", true, e.opts()...); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	e.reset()
}

// addTask creates a task and returns its id, parsed from the command output
func (e *testEnv) addTask(t *testing.T, title string) string {
	t.Helper()
	e.reset()
	if err := runAdd(context.Background(), title, nil, e.opts()...); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	fields := strings.Fields(e.out.String())
	if len(fields) < 4 {
		t.Fatalf("unexpected add output: %q", e.out.String())
	}
	e.reset()
	return strings.TrimSuffix(fields[3], ":")
}

// scriptedPrompter answers prompts from queues. An exhausted Select queue
// cancels, which ends interactive loops.
type scriptedPrompter struct {
	selects   []func(label string, items []menuItem) int
	inputs    []string
	passwords []string
	confirms  []bool

	selectLabels []string
	menus        [][]menuItem
}

func (p *scriptedPrompter) Select(label string, items []menuItem, cursor int) (int, error) {
	p.selectLabels = append(p.selectLabels, label)
	p.menus = append(p.menus, items)
	if len(p.selects) == 0 {
		return 0, errCancelled
	}
	next := p.selects[0]
	p.selects = p.selects[1:]
	return next(label, items), nil
}

func (p *scriptedPrompter) Input(label, defaultValue string, validate func(string) error) (string, error) {
	if len(p.inputs) == 0 {
		return "", errCancelled
	}
	value := p.inputs[0]
	p.inputs = p.inputs[1:]
	if validate != nil {
		if err := validate(value); err != nil {
			return "", err
		}
	}
	return value, nil
}

func (p *scriptedPrompter) Password(label string) (string, error) {
	if len(p.passwords) == 0 {
		return "", errCancelled
	}
	value := p.passwords[0]
	p.passwords = p.passwords[1:]
	return value, nil
}

func (p *scriptedPrompter) Confirm(label string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, errCancelled
	}
	value := p.confirms[0]
	p.confirms = p.confirms[1:]
	return value, nil
}

func pick(index int) func(string, []menuItem) int {
	return func(string, []menuItem) int { return index }
}

func pickLabel(prefix string) func(string, []menuItem) int {
	return func(_ string, items []menuItem) int {
		for i, item := range items {
			if strings.HasPrefix(item.Label, prefix) {
				return i
			}
		}
		return len(items) - 1
	}
}
