package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.session.SignIn(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", displayName(u.Email, u.DisplayName), u.UID)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.CurrentUser() == nil {
				fmt.Fprintln(a.out, "Not signed in")
				return nil
			}
			if err := a.session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.session.CurrentUser()
			if u == nil {
				fmt.Fprintln(a.out, "Not signed in")
				return nil
			}
			fmt.Fprintf(a.out, "%s (%s)\n", displayName(u.Email, u.DisplayName), u.UID)

			if check, _ := cmd.Flags().GetBool("check"); check {
				me, err := a.remote().Me(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "API: %s admin=%t\n", me.UID, me.Admin)
			}
			return nil
		},
	}
	cmd.Flags().Bool("check", false, "verify the session against the API")
	return cmd
}

func displayName(email, name string) string {
	if email != "" {
		return email
	}
	if name != "" {
		return name
	}
	return "unknown"
}
