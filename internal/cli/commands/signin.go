package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskwiz/taskwiz/internal/cli/config"
	"github.com/taskwiz/taskwiz/internal/cli/output"
	"github.com/taskwiz/taskwiz/internal/cli/userconfig"
	"github.com/taskwiz/taskwiz/internal/cli/validate"
)

// NewSignInCmd creates the signin command
func NewSignInCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:     "signin",
		Aliases: []string{"login"},
		Short:   "Sign in to a TaskWiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignIn(cmd.Context(), email, password, false, globalOptions(cmd)...)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set TASKWIZ_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TASKWIZ_PASSWORD, will prompt if not provided)")

	return cmd
}

// NewSignUpCmd creates the signup command
func NewSignUpCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignIn(cmd.Context(), email, password, true, globalOptions(cmd)...)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set TASKWIZ_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TASKWIZ_PASSWORD, will prompt if not provided)")

	return cmd
}

func runSignIn(ctx context.Context, email, password string, signUp bool, opts ...Option) error {
	ro := newRunOptions(opts)

	email, password, err := readCredentials(ro, email, password, signUp)
	if err != nil {
		return err
	}

	a, err := newApp(ro)
	if err != nil {
		return err
	}

	if signUp {
		fmt.Fprintf(ro.out, "Creating account on %s (%s)...\n", a.server.Alias, a.server.URL)
		err = a.session.SignUp(ctx, email, password)
	} else {
		fmt.Fprintf(ro.out, "Signing in to %s (%s)...\n", a.server.Alias, a.server.URL)
		err = a.session.SignIn(ctx, email, password)
	}
	if err != nil {
		return err
	}

	user, err := a.session.RequireUser()
	if err != nil {
		return err
	}

	if err := userconfig.SetLastEmail(user.Email); err != nil {
		ro.logger.Debug().Err(err).Msg("Failed to remember email")
	}

	if signUp {
		fmt.Fprintln(ro.out, "✓ Account created!")
	} else {
		fmt.Fprintln(ro.out, "✓ Signed in successfully!")
	}
	fmt.Fprintf(ro.out, "  User: %s\n", user.Email)
	return nil
}

// readCredentials fills email and password from flags, then the environment,
// then interactive prompts. Non-interactive runs must supply both.
func readCredentials(ro *runOptions, email, password string, signUp bool) (string, string, error) {
	if email == "" {
		email = os.Getenv(config.EnvEmail)
	}
	if password == "" {
		password = os.Getenv(config.EnvPassword)
	}

	interactive := ro.interactive || isTerminal(ro.in)

	if email == "" {
		if !interactive {
			return "", "", fmt.Errorf("email is required (use --email flag or %s env var)", config.EnvEmail)
		}
		var lastEmail string
		if cfg, err := userconfig.Load(); err == nil {
			lastEmail = cfg.LastEmail
		}
		value, err := ro.prompter.Input("Email", lastEmail, validate.Email)
		if err != nil {
			return "", "", err
		}
		email = value
	}

	if password == "" {
		if !interactive {
			return "", "", fmt.Errorf("password is required in non-interactive mode (use --password flag or %s env var)", config.EnvPassword)
		}
		value, err := ro.prompter.Password("Password")
		if err != nil {
			return "", "", err
		}
		if signUp {
			confirm, err := ro.prompter.Password("Confirm password")
			if err != nil {
				return "", "", err
			}
			if confirm != value {
				return "", "", fmt.Errorf("passwords do not match")
			}
		}
		password = value
	}

	return email, password, nil
}

// NewSignOutCmd creates the signout command
func NewSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "signout",
		Aliases: []string{"logout"},
		Short:   "Sign out and forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignOut(cmd.Context(), globalOptions(cmd)...)
		},
	}
}

func runSignOut(ctx context.Context, opts ...Option) error {
	ro := newRunOptions(opts)

	a, err := newApp(ro)
	if err != nil {
		return err
	}

	a.session.SignOut(ctx)
	fmt.Fprintf(ro.out, "✓ Signed out of %s\n", a.server.Alias)
	return nil
}

// NewWhoAmICmd creates the whoami command
func NewWhoAmICmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoAmI(cmd.Context(), format, globalOptions(cmd)...)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")

	return cmd
}

func runWhoAmI(ctx context.Context, format string, opts ...Option) error {
	ro := newRunOptions(opts)

	outFormat, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	a, err := newApp(ro)
	if err != nil {
		return err
	}

	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	return output.User(ro.out, outFormat, *user, a.server.URL)
}
