package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/taskwiz/taskwiz/internal/cli/client"
	"github.com/taskwiz/taskwiz/internal/tasklist"
)

func TestBrowseMenu_NavigationState(t *testing.T) {
	tests := []struct {
		name         string
		page, total  int
		prevDisabled bool
		nextDisabled bool
	}{
		{name: "single page", page: 1, total: 1, prevDisabled: true, nextDisabled: true},
		{name: "first of many", page: 1, total: 3, prevDisabled: true, nextDisabled: false},
		{name: "middle", page: 2, total: 3, prevDisabled: false, nextDisabled: false},
		{name: "last", page: 3, total: 3, prevDisabled: false, nextDisabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tasklist.Mirror{
				Items:      []client.Task{{ID: "a", Title: "one"}, {ID: "b", Title: "two", IsCompleted: true}},
				Page:       tt.page,
				TotalPages: tt.total,
			}
			entries := browseMenu(m)
			if len(entries) != 7 {
				t.Fatalf("expected 7 entries, got %d", len(entries))
			}
			if entries[0].taskID != "a" || entries[1].taskID != "b" {
				t.Errorf("expected tasks first, got %+v", entries[:2])
			}
			if entries[2].action != browsePrevious || entries[2].Disabled != tt.prevDisabled {
				t.Errorf("previous: got %+v, want disabled=%v", entries[2], tt.prevDisabled)
			}
			if entries[3].action != browseNext || entries[3].Disabled != tt.nextDisabled {
				t.Errorf("next: got %+v, want disabled=%v", entries[3], tt.nextDisabled)
			}
			if entries[6].action != browseQuit {
				t.Errorf("expected quit last, got %+v", entries[6])
			}
		})
	}
}

func TestBrowse_PagesTogglesAndAdds(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ada@example.com")
	for _, title := range []string{"first", "second", "third"} {
		env.addTask(t, title)
	}

	p := &scriptedPrompter{
		selects: []func(string, []menuItem) int{
			pickLabel("← Previous"),
			pickLabel("→ Next"),
			pick(0),
			pickLabel("Mark as com"),
			pickLabel("+ Add"),
			pickLabel("Quit"),
		},
		inputs: []string{"new task", ""},
	}

	if err := runBrowse(context.Background(), env.opts(withPrompter(p), withPageSize(2))...); err != nil {
		t.Fatalf("browse failed: %v", err)
	}

	if p.selectLabels[0] != "Tasks (page 1 of 2)" || p.selectLabels[1] != "Tasks (page 1 of 2)" {
		t.Errorf("unexpected first labels: %q", p.selectLabels[:2])
	}
	if !p.menus[0][2].Disabled || p.menus[0][3].Disabled {
		t.Errorf("page 1 should disable previous only: %+v", p.menus[0])
	}
	if p.selectLabels[2] != "Tasks (page 2 of 2)" {
		t.Errorf("expected page 2, got %q", p.selectLabels[2])
	}
	if p.menus[2][1].Disabled || !p.menus[2][2].Disabled {
		t.Errorf("page 2 should disable next only: %+v", p.menus[2])
	}
	if p.selectLabels[3] != "first" {
		t.Errorf("expected task menu for 'first', got %q", p.selectLabels[3])
	}
	if env.errOut.Len() != 0 {
		t.Errorf("unexpected errors: %s", env.errOut.String())
	}

	result := listJSON(t, env, 1)
	if result.Total != 4 {
		t.Fatalf("expected 4 tasks, got %d", result.Total)
	}
	for _, task := range result.Items {
		if task.Title == "first" && !task.IsCompleted {
			t.Error("expected 'first' to be completed")
		}
	}
	if result.Items[0].Title != "new task" {
		t.Errorf("expected new task first, got %q", result.Items[0].Title)
	}
}

func TestBrowse_DeleteWithConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ada@example.com")
	env.addTask(t, "keep")
	env.addTask(t, "drop")

	p := &scriptedPrompter{
		selects: []func(string, []menuItem) int{
			pickLabel("[ ] drop"),
			pickLabel("Delete"),
			pickLabel("Quit"),
		},
		confirms: []bool{true},
	}

	if err := runBrowse(context.Background(), env.opts(withPrompter(p))...); err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if got := len(p.menus[2]); got != 6 {
		t.Errorf("expected one task left in the menu, got %d entries", got)
	}

	result := listJSON(t, env, 1)
	if len(result.Items) != 1 || result.Items[0].Title != "keep" {
		t.Fatalf("expected only 'keep' to remain, got %+v", result.Items)
	}
}

func TestBrowse_ReportsErrorsAndContinues(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ada@example.com")
	env.addTask(t, "only")

	p := &scriptedPrompter{
		selects: []func(string, []menuItem) int{
			pick(0),
			pickLabel("Edit title"),
			pickLabel("Quit"),
		},
		inputs: []string{"   "},
	}

	if err := runBrowse(context.Background(), env.opts(withPrompter(p))...); err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if !strings.Contains(env.errOut.String(), "Error: Title is required") {
		t.Errorf("expected validation error to be shown, got: %q", env.errOut.String())
	}
	if len(p.selectLabels) != 3 {
		t.Errorf("expected browse to continue after the error, got %d prompts", len(p.selectLabels))
	}
}

func TestBrowse_CancelExitsCleanly(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ada@example.com")

	p := &scriptedPrompter{}
	if err := runBrowse(context.Background(), env.opts(withPrompter(p))...); err != nil {
		t.Fatalf("expected clean exit, got: %v", err)
	}
	if len(p.selectLabels) != 1 {
		t.Errorf("expected one prompt, got %d", len(p.selectLabels))
	}
}

func TestBrowse_RequiresTerminal(t *testing.T) {
	env := newTestEnv(t)

	err := runBrowse(context.Background(), env.opts()...)
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Fatalf("expected terminal error, got: %v", err)
	}
}
