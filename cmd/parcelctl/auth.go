package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required: pass --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			token, err := a.client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := a.session.Login(ctx, token, nil); err != nil {
				return err
			}

			// The auth service only knows the credentials; the profile lives in
			// the orders API. Without it the session grants no capabilities.
			user, err := a.client.FetchUser(ctx)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "signed in, but the profile could not be loaded: %v\n", err)
				return nil
			}
			if err := a.session.UpdateUser(ctx, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session stored on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := a.session.State()
			out := cmd.OutOrStdout()
			if !state.IsAuthenticated() {
				fmt.Fprintln(out, "not signed in")
				return nil
			}
			if state.User == nil {
				fmt.Fprintln(out, "signed in (profile not loaded)")
				return nil
			}
			fmt.Fprintf(out, "%s <%s>\nrole: %s\n", state.User.Name, state.User.Email, state.User.Role)
			return nil
		},
	}
}
