// Package output renders command results as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskwiz/taskwiz/internal/cli/client"
)

// Format selects the renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json, yaml or yml. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format '%s', must be one of: table, json, yaml", s)
	}
}

const maxTitleWidth = 60

// Page writes a page of tasks.
func Page(w io.Writer, format Format, page client.TaskPage) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, page)
	case FormatYAML:
		return writeYAML(w, page)
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		fmt.Fprintln(w, "\nCreate a task with: taskwiz add <title>")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tCREATED AT")
	fmt.Fprintln(tw, "──\t────\t─────\t──────────")
	for _, task := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			task.ID,
			checkbox(task.IsCompleted),
			truncate(task.Title, maxTitleWidth),
			timestamp(task.CreatedAt),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totalPages := page.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d tasks)\n", page.Page, totalPages, page.Total)
	return nil
}

// Task writes a single task.
func Task(w io.Writer, format Format, task client.Task) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, task)
	case FormatYAML:
		return writeYAML(w, task)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", task.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", task.Title)
	if task.Description != nil && *task.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", *task.Description)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", status(task.IsCompleted))
	fmt.Fprintf(tw, "Created:\t%s\n", timestamp(task.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", timestamp(task.UpdatedAt))
	return tw.Flush()
}

// User writes the signed-in identity.
func User(w io.Writer, format Format, user client.User, serverURL string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, user)
	case FormatYAML:
		return writeYAML(w, user)
	}

	fmt.Fprintf(w, "Signed in to %s as %s\n", serverURL, user.Email)
	fmt.Fprintf(w, "  User ID: %s\n", user.ID)
	return nil
}

// TaskLine is the one-line label used in interactive lists.
func TaskLine(task client.Task) string {
	return fmt.Sprintf("%s %s", checkbox(task.IsCompleted), truncate(task.Title, maxTitleWidth))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func status(done bool) string {
	if done {
		return "completed"
	}
	return "pending"
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
