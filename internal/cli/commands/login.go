package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
	"github.com/fmcg-dev/fmcg/internal/cli/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the product-mastering backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Decision == guard.RedirectHome {
				if u := env.Session.User(); u != nil {
					fmt.Fprintf(env.Out, "Already signed in as %s (%s)\n", u.Name, u.Email)
				}
				env.Navigate(session.RouteHome)
				return nil
			}
			return runLogin(cmd, env, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set FMCG_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set FMCG_PASSWORD, will prompt if not provided)")

	return guard.Mark(cmd, guard.Public)
}

func runLogin(cmd *cobra.Command, env *Env, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("FMCG_EMAIL")
	}
	if password == "" {
		password = os.Getenv("FMCG_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or FMCG_EMAIL env var)")
	}

	if password == "" {
		var err error
		password, err = env.ReadPassword()
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(env.Out, "Logging in to %s (%s)...\n", env.Server.Alias, env.Server.URL)

	result := env.Session.Login(cmd.Context(), email, password)
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env.Session.Logout(cmd.Context())
			return nil
		},
	}
	return withBackend(cmd)
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := env.Session.User()
			render.Field(env.Out, "Name", u.Name)
			render.Field(env.Out, "Email", u.Email)
			if u.Company != "" {
				render.Field(env.Out, "Company", u.Company)
			}
			render.Field(env.Out, "Backend", fmt.Sprintf("%s (%s)", env.Server.Alias, env.Server.URL))
			return nil
		},
	}
	return guard.Mark(cmd, guard.Protected)
}
