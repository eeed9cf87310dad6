package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
)

// DefaultPageSize matches the backend's default page size.
const DefaultPageSize = 20

// tasksBase resolves the configured tasks path for the current user scope.
func (c *Client) tasksBase() (string, error) {
	if !strings.Contains(c.tasksPath, UserIDPlaceholder) {
		return c.tasksPath, nil
	}
	userID := c.userScope()
	if userID == "" {
		return "", apierr.NewValidation("user", "user-scoped task paths require a signed-in user")
	}
	return strings.ReplaceAll(c.tasksPath, UserIDPlaceholder, url.PathEscape(userID)), nil
}

func (c *Client) taskPath(id string) (string, error) {
	base, err := c.tasksBase()
	if err != nil {
		return "", err
	}
	return base + "/" + url.PathEscape(id), nil
}

// ListTasks returns one page of tasks. page is 1-based.
func (c *Client) ListTasks(ctx context.Context, page, pageSize int) (*TaskPage, error) {
	base, err := c.tasksBase()
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var resp TaskPage
	if err := c.do(ctx, http.MethodGet, base, query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []Task{}
	}
	return &resp, nil
}

// GetTask returns a single task by ID
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	path, err := c.taskPath(id)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task and returns the server's representation of it.
func (c *Client) CreateTask(ctx context.Context, req TaskCreate) (*Task, error) {
	base, err := c.tasksBase()
	if err != nil {
		return nil, err
	}

	var task Task
	if err := c.do(ctx, http.MethodPost, base, nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update with the configured method (PATCH or PUT).
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	path, err := c.taskPath(id)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := c.do(ctx, c.updateMethod, path, nil, patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask deletes a task by ID
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path, err := c.taskPath(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
