package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// errCancelled is returned when the user aborts a prompt with Ctrl-C or Ctrl-D.
var errCancelled = errors.New("cancelled")

// menuItem is one row of an interactive menu.
type menuItem struct {
	Label    string
	Disabled bool
}

// prompter is the interactive surface used by signin/signup and browse.
type prompter interface {
	Select(label string, items []menuItem, cursor int) (int, error)
	Input(label, defaultValue string, validate func(string) error) (string, error)
	Confirm(label string) (bool, error)
	Password(label string) (string, error)
}

// promptuiPrompter drives a real terminal.
type promptuiPrompter struct{}

func (promptuiPrompter) Select(label string, items []menuItem, cursor int) (int, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   `{{ if .Disabled }}> {{ .Label | faint }}{{ else }}> {{ .Label | cyan }}{{ end }}`,
		Inactive: `{{ if .Disabled }}  {{ .Label | faint }}{{ else }}  {{ .Label }}{{ end }}`,
		Selected: `{{ .Label | green }}`,
	}

	prompt := promptui.Select{
		Label:        label,
		Items:        items,
		Templates:    templates,
		Size:         15,
		CursorPos:    cursor,
		HideSelected: true,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return 0, promptError(err)
	}
	return index, nil
}

func (promptuiPrompter) Input(label, defaultValue string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   defaultValue,
		AllowEdit: true,
		Validate:  validate,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", promptError(err)
	}
	return value, nil
}

func (promptuiPrompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, promptError(err)
	}
	return true, nil
}

func (promptuiPrompter) Password(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNotInteractive
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

var errNotInteractive = errors.New("not running in a terminal")

func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errCancelled
	}
	return err
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
