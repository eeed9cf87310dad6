package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskwiz/taskwiz/internal/cli/client"
	"github.com/taskwiz/taskwiz/internal/cli/output"
)

// NewListCmd creates the ls command
func NewListCmd() *cobra.Command {
	var page, pageSize int
	var format string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append(globalOptions(cmd), withPageSize(pageSize))
			return runList(cmd.Context(), page, format, opts...)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Tasks per page (1-100, defaults to the server's page_size)")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")

	return cmd
}

func runList(ctx context.Context, page int, format string, opts ...Option) error {
	ro := newRunOptions(opts)

	outFormat, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	if ro.pageSize < 0 || ro.pageSize > 100 {
		return fmt.Errorf("invalid page size %d, must be between 1 and 100", ro.pageSize)
	}

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	if err := a.tasks.List(ctx, page); err != nil {
		return err
	}

	return output.Page(ro.out, outFormat, mirrorPage(a.tasks.State()))
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), args[0], format, globalOptions(cmd)...)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")

	return cmd
}

func runShow(ctx context.Context, id, format string, opts ...Option) error {
	ro := newRunOptions(opts)

	outFormat, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	task, err := a.loadTask(ctx, id)
	if err != nil {
		return err
	}
	return output.Task(ro.out, outFormat, *task)
}

// NewAddCmd creates the add command
func NewAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Long: `Create a task.

Examples:
  $ taskwiz add "Buy milk"
  $ taskwiz add "Write report" --description "Quarterly numbers"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			return runAdd(cmd.Context(), args[0], desc, globalOptions(cmd)...)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")

	return cmd
}

func runAdd(ctx context.Context, title string, description *string, opts ...Option) error {
	ro := newRunOptions(opts)

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	task, err := a.tasks.Create(ctx, title, description)
	if err != nil {
		return err
	}

	fmt.Fprintf(ro.out, "✓ Created task %s: %s\n", task.ID, task.Title)
	return nil
}

// NewEditCmd creates the edit command
func NewEditCmd() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch client.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			return runEdit(cmd.Context(), args[0], patch, globalOptions(cmd)...)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")

	return cmd
}

func runEdit(ctx context.Context, id string, patch client.TaskPatch, opts ...Option) error {
	ro := newRunOptions(opts)

	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update: pass --title and/or --description")
	}

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	if _, err := a.loadTask(ctx, id); err != nil {
		return err
	}

	task, err := a.tasks.Update(ctx, id, patch)
	if err != nil {
		return err
	}

	fmt.Fprintf(ro.out, "✓ Updated task %s: %s\n", task.ID, task.Title)
	return nil
}

// NewDoneCmd creates the done command
func NewDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "done <task-id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between completed and pending",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDone(cmd.Context(), args[0], globalOptions(cmd)...)
		},
	}
}

func runDone(ctx context.Context, id string, opts ...Option) error {
	ro := newRunOptions(opts)

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	if _, err := a.loadTask(ctx, id); err != nil {
		return err
	}

	task, err := a.tasks.ToggleComplete(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task '%s' not found", id)
	}

	if task.IsCompleted {
		fmt.Fprintf(ro.out, "✓ Completed: %s\n", task.Title)
	} else {
		fmt.Fprintf(ro.out, "✓ Reopened: %s\n", task.Title)
	}
	return nil
}

// NewRemoveCmd creates the rm command
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), args[0], globalOptions(cmd)...)
		},
	}
}

func runRemove(ctx context.Context, id string, opts ...Option) error {
	ro := newRunOptions(opts)

	a, err := newApp(ro)
	if err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	task, err := a.loadTask(ctx, id)
	if err != nil {
		return err
	}

	if err := a.tasks.Remove(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(ro.out, "✓ Deleted task %s: %s\n", task.ID, task.Title)
	return nil
}
