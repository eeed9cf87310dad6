// Package tasklist mirrors one page of the signed-in user's tasks and keeps it
// reconciled with the server.
//
// Every operation follows the same shape: validate locally, mark the mirror as
// loading, call the backend without holding any lock, then apply a reducer to
// whatever the mirror holds at completion time. The server's object is the
// only thing ever written, so overlapping calls resolve last-write-wins.
package tasklist

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
	"github.com/taskwiz/taskwiz/internal/cli/client"
	"github.com/taskwiz/taskwiz/internal/cli/validate"
)

// TaskAPI is the backend surface the manager drives. *client.Client implements it.
type TaskAPI interface {
	ListTasks(ctx context.Context, page, pageSize int) (*client.TaskPage, error)
	GetTask(ctx context.Context, id string) (*client.Task, error)
	CreateTask(ctx context.Context, req client.TaskCreate) (*client.Task, error)
	UpdateTask(ctx context.Context, id string, patch client.TaskPatch) (*client.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Options configures a Manager.
type Options struct {
	Logger   zerolog.Logger
	PageSize int // defaults to client.DefaultPageSize
	// OnUnauthorized runs when the backend rejects the session with 401.
	OnUnauthorized func(reason string)
}

// Manager owns the task mirror. Callers gate it on an authenticated session.
type Manager struct {
	api            TaskAPI
	logger         zerolog.Logger
	pageSize       int
	onUnauthorized func(reason string)

	mu     sync.Mutex
	mirror Mirror
}

// New creates a Manager with an empty mirror on page 1.
func New(api TaskAPI, opts Options) *Manager {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = client.DefaultPageSize
	}
	return &Manager{
		api:            api,
		logger:         opts.Logger,
		pageSize:       pageSize,
		onUnauthorized: opts.OnUnauthorized,
		mirror:         Empty(),
	}
}

// State returns a snapshot of the mirror. The Items slice is a copy.
func (m *Manager) State() Mirror {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.mirror
	s.Items = append([]client.Task(nil), m.mirror.Items...)
	return s
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.mirror.Loading = true
	m.mu.Unlock()
}

// finish clears the loading flag and, on success, applies the reducer to the
// latest mirror. On failure the mirror is left as it is and Err is set.
func (m *Manager) finish(apply func(Mirror) Mirror, err error) {
	m.mu.Lock()
	if err == nil && apply != nil {
		m.mirror = apply(m.mirror)
	}
	m.mirror.Loading = false
	m.mirror.Err = apierr.Message(err)
	m.mu.Unlock()

	if err != nil && apierr.IsUnauthorized(err) && m.onUnauthorized != nil {
		m.onUnauthorized(apierr.Message(err))
	}
}

// reject records a local validation failure; nothing else changes.
func (m *Manager) reject(err error) error {
	m.mu.Lock()
	m.mirror.Err = apierr.Message(err)
	m.mu.Unlock()
	return err
}

func (m *Manager) lookup(id string) (client.Task, error) {
	m.mu.Lock()
	task, ok := m.mirror.Find(id)
	m.mu.Unlock()
	if !ok {
		return client.Task{}, apierr.NewValidation("id", fmt.Sprintf("Task '%s' is not loaded", id))
	}
	return task, nil
}

// List loads a page and replaces the mirror with it. On failure the previous
// page stays in place.
func (m *Manager) List(ctx context.Context, page int) error {
	if err := validate.Page(page); err != nil {
		return m.reject(err)
	}

	m.begin()
	result, err := m.api.ListTasks(ctx, page, m.pageSize)
	if err != nil {
		m.logger.Debug().Err(err).Int("page", page).Msg("Failed to list tasks")
		m.finish(nil, err)
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	m.finish(func(prev Mirror) Mirror { return ApplyPage(prev, page, *result) }, nil)
	return nil
}

// Refetch reloads the current page.
func (m *Manager) Refetch(ctx context.Context) error {
	return m.List(ctx, m.State().Page)
}

// GoToPage loads page n. It does not clamp n to the known page range; the
// caller disables navigation past either end.
func (m *Manager) GoToPage(ctx context.Context, n int) error {
	return m.List(ctx, n)
}

// Create validates the title, creates the task and appends the server's copy.
func (m *Manager) Create(ctx context.Context, title string, description *string) (*client.Task, error) {
	if err := validate.TaskTitle(title); err != nil {
		return nil, m.reject(err)
	}

	req := client.TaskCreate{Title: strings.TrimSpace(title), Description: description}

	m.begin()
	task, err := m.api.CreateTask(ctx, req)
	if err != nil {
		m.finish(nil, err)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	m.logger.Debug().Str("task_id", task.ID).Msg("Task created")
	m.finish(func(prev Mirror) Mirror { return ApplyCreated(prev, *task) }, nil)
	return task, nil
}

// Update applies a partial update to a mirrored task and replaces the entry
// with the server's result.
func (m *Manager) Update(ctx context.Context, id string, patch client.TaskPatch) (*client.Task, error) {
	if _, err := m.lookup(id); err != nil {
		return nil, m.reject(err)
	}
	if patch.IsEmpty() {
		return nil, m.reject(apierr.NewValidation("patch", "Nothing to update"))
	}
	if patch.Title != nil {
		if err := validate.TaskTitle(*patch.Title); err != nil {
			return nil, m.reject(err)
		}
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}

	return m.update(ctx, id, patch)
}

func (m *Manager) update(ctx context.Context, id string, patch client.TaskPatch) (*client.Task, error) {
	m.begin()
	task, err := m.api.UpdateTask(ctx, id, patch)
	if err != nil {
		m.finish(nil, err)
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	m.finish(func(prev Mirror) Mirror { return ApplyUpdated(prev, *task) }, nil)
	return task, nil
}

// ToggleComplete flips the completion flag of a mirrored task. An id that is
// not mirrored is ignored: no request, no state change, nil task and error.
func (m *Manager) ToggleComplete(ctx context.Context, id string) (*client.Task, error) {
	current, err := m.lookup(id)
	if err != nil {
		return nil, nil
	}

	completed := !current.IsCompleted
	return m.update(ctx, id, client.TaskPatch{IsCompleted: &completed})
}

// Remove deletes a mirrored task and drops it from the mirror.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if _, err := m.lookup(id); err != nil {
		return m.reject(err)
	}

	m.begin()
	if err := m.api.DeleteTask(ctx, id); err != nil {
		m.finish(nil, err)
		return fmt.Errorf("failed to delete task: %w", err)
	}

	m.finish(func(prev Mirror) Mirror { return ApplyRemoved(prev, id) }, nil)
	return nil
}

// Get fetches one task and upserts it into the mirror, so a task can be
// operated on without loading the page that holds it.
func (m *Manager) Get(ctx context.Context, id string) (*client.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, m.reject(apierr.NewValidation("id", "Task ID is required"))
	}

	m.begin()
	task, err := m.api.GetTask(ctx, id)
	if err != nil {
		m.finish(nil, err)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	m.finish(func(prev Mirror) Mirror { return ApplyUpserted(prev, *task) }, nil)
	return task, nil
}
