package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quizforge/internal/domain"
)

type credentialFlags struct {
	username string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "account username (prompted when empty)")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "account password (prompted when empty)")
}

// NewSignupCmd creates an account and signs in with it.
func NewSignupCmd(configPath *string) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if creds.username == "" {
				if creds.username, err = rt.prompt("Username: "); err != nil {
					return err
				}
			}
			if creds.password == "" {
				if creds.password, err = rt.prompt("Password: "); err != nil {
					return err
				}
			}
			user, err := rt.api.Signup(cmd.Context(), creds.username, creds.password)
			if errors.Is(err, domain.ErrUsernameTaken) {
				return fmt.Errorf("username %q is taken", creds.username)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Account %s created.\n", user.Username)
			if _, err := rt.login(cmd.Context(), creds.username, creds.password); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "Signed in.")
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

// NewLoginCmd signs in and persists the session.
func NewLoginCmd(configPath *string) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			user, err := rt.login(cmd.Context(), creds.username, creds.password)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Signed in as %s.\n", user.Username)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

// NewLogoutCmd revokes the token and clears the local session.
func NewLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.session.Token() != "" {
				// An already invalid token or an unreachable server must not keep the local session alive.
				if err := rt.api.Logout(cmd.Context()); err != nil && !domain.IsAuth(err) {
					fmt.Fprintf(rt.out, "warning: could not revoke token: %v\n", err)
				}
			}
			if err := rt.session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "Signed out.")
			return nil
		},
	}
}
