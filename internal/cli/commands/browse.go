package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
	"github.com/taskwiz/taskwiz/internal/cli/client"
	"github.com/taskwiz/taskwiz/internal/cli/output"
	"github.com/taskwiz/taskwiz/internal/cli/validate"
	"github.com/taskwiz/taskwiz/internal/session"
	"github.com/taskwiz/taskwiz/internal/tasklist"
)

// NewBrowseCmd creates the browse command
func NewBrowseCmd() *cobra.Command {
	var pageSize int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through and edit tasks interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append(globalOptions(cmd), withPageSize(pageSize))
			return runBrowse(cmd.Context(), opts...)
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Tasks per page (1-100, defaults to the server's page_size)")

	return cmd
}

type browseAction int

const (
	browseTask browseAction = iota
	browsePrevious
	browseNext
	browseAdd
	browseRefresh
	browseQuit
)

type browseEntry struct {
	menuItem
	action browseAction
	taskID string
}

// browseMenu lays out one screen: the page's tasks, then navigation. Previous
// is disabled on the first page and Next on the last.
func browseMenu(m tasklist.Mirror) []browseEntry {
	entries := make([]browseEntry, 0, len(m.Items)+5)
	for _, task := range m.Items {
		entries = append(entries, browseEntry{
			menuItem: menuItem{Label: output.TaskLine(task)},
			action:   browseTask,
			taskID:   task.ID,
		})
	}

	return append(entries,
		browseEntry{menuItem: menuItem{Label: "← Previous page", Disabled: m.Page <= 1}, action: browsePrevious},
		browseEntry{menuItem: menuItem{Label: "→ Next page", Disabled: m.Page >= m.TotalPages}, action: browseNext},
		browseEntry{menuItem: menuItem{Label: "+ Add task"}, action: browseAdd},
		browseEntry{menuItem: menuItem{Label: "↻ Refresh"}, action: browseRefresh},
		browseEntry{menuItem: menuItem{Label: "Quit"}, action: browseQuit},
	)
}

func runBrowse(ctx context.Context, opts ...Option) error {
	ro := newRunOptions(opts)

	if !ro.interactive && !isTerminal(ro.in) {
		return fmt.Errorf("browse needs an interactive terminal; use 'taskwiz ls' instead")
	}

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	if err := a.tasks.List(ctx, 1); err != nil {
		return err
	}

	cursor := 0
	for {
		if !a.session.State().Authenticated {
			return session.ErrNotAuthenticated
		}

		m := a.tasks.State()
		entries := browseMenu(m)
		items := make([]menuItem, len(entries))
		for i, e := range entries {
			items[i] = e.menuItem
		}
		cursor = min(cursor, len(items)-1)

		label := fmt.Sprintf("Tasks (page %d of %d)", m.Page, m.TotalPages)
		if m.Err != "" {
			label += ": " + m.Err
		}

		idx, err := ro.prompter.Select(label, items, cursor)
		if errors.Is(err, errCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		cursor = idx

		entry := entries[idx]
		if entry.Disabled {
			continue
		}

		var opErr error
		switch entry.action {
		case browseQuit:
			return nil
		case browsePrevious:
			opErr = a.tasks.GoToPage(ctx, m.Page-1)
			cursor = 0
		case browseNext:
			opErr = a.tasks.GoToPage(ctx, m.Page+1)
			cursor = 0
		case browseRefresh:
			opErr = a.tasks.Refetch(ctx)
		case browseAdd:
			opErr = browseAddTask(ctx, a)
		case browseTask:
			opErr = browseTaskMenu(ctx, a, entry.taskID)
		}

		if opErr != nil && !errors.Is(opErr, errCancelled) {
			fmt.Fprintf(ro.errOut, "Error: %s\n", apierr.Message(opErr))
		}
	}
}

func browseAddTask(ctx context.Context, a *app) error {
	title, err := a.prompter.Input("Title", "", validate.TaskTitle)
	if err != nil {
		return err
	}
	description, err := a.prompter.Input("Description (optional)", "", nil)
	if err != nil {
		return err
	}

	var desc *string
	if description != "" {
		desc = &description
	}
	_, err = a.tasks.Create(ctx, title, desc)
	return err
}

func browseTaskMenu(ctx context.Context, a *app, id string) error {
	task, ok := a.tasks.State().Find(id)
	if !ok {
		return nil
	}

	toggleLabel := "Mark as completed"
	if task.IsCompleted {
		toggleLabel = "Mark as pending"
	}
	actions := []menuItem{
		{Label: toggleLabel},
		{Label: "Edit title"},
		{Label: "Edit description"},
		{Label: "Delete"},
		{Label: "Back"},
	}

	idx, err := a.prompter.Select(task.Title, actions, 0)
	if err != nil {
		return err
	}

	switch idx {
	case 0:
		_, err = a.tasks.ToggleComplete(ctx, id)
		return err
	case 1:
		title, err := a.prompter.Input("Title", task.Title, validate.TaskTitle)
		if err != nil {
			return err
		}
		_, err = a.tasks.Update(ctx, id, client.TaskPatch{Title: &title})
		return err
	case 2:
		var current string
		if task.Description != nil {
			current = *task.Description
		}
		description, err := a.prompter.Input("Description", current, nil)
		if err != nil {
			return err
		}
		_, err = a.tasks.Update(ctx, id, client.TaskPatch{Description: &description})
		return err
	case 3:
		ok, err := a.prompter.Confirm(fmt.Sprintf("Delete '%s'", task.Title))
		if err != nil || !ok {
			return err
		}
		return a.tasks.Remove(ctx, id)
	default:
		return nil
	}
}
