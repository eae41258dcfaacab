package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Profile, password and notification settings",
	}
	cmd.AddCommand(
		newSettingsProfileCmd(a),
		newSettingsPasswordCmd(a),
		newSettingsNotificationsCmd(a),
	)
	return cmd
}

func newSettingsProfileCmd(a *app) *cobra.Command {
	var name, company string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.require(domain.CapEditProfile); err != nil {
				return err
			}
			ctx := cmd.Context()

			if cmd.Flags().Changed("name") || cmd.Flags().Changed("company") {
				if err := a.client.UpdateProfile(ctx, name, company); err != nil {
					return err
				}
			}

			profile, err := a.client.Profile(ctx)
			if err != nil {
				return err
			}
			user := profile.User()
			if err := a.session.UpdateUser(ctx, &user); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:    %s\nemail:   %s\nrole:    %s\n", profile.Name, profile.Email, profile.Role)
			if profile.Company != "" {
				fmt.Fprintf(out, "company: %s\n", profile.Company)
			}
			if profile.JoinedDate != "" {
				fmt.Fprintf(out, "joined:  %s\n", profile.JoinedDate)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&company, "company", "", "new company")
	return cmd
}

func newSettingsPasswordCmd(a *app) *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			if len(next) < 6 {
				return errors.New("new password must be at least 6 characters")
			}
			if err := a.client.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func newSettingsNotificationsCmd(a *app) *cobra.Command {
	var orderUpdates, promotional, statusChanges bool

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show or toggle notification settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			ctx := cmd.Context()

			settings, err := a.client.NotificationSettings(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			changed := false
			if flags.Changed("order-updates") {
				settings.OrderUpdates, changed = orderUpdates, true
			}
			if flags.Changed("promotional") {
				settings.PromotionalEmails, changed = promotional, true
			}
			if flags.Changed("status-changes") {
				settings.StatusChanges, changed = statusChanges, true
			}
			if changed {
				if err := a.client.UpdateNotificationSettings(ctx, *settings); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "order updates:      %s\npromotional emails: %s\nstatus changes:     %s\n",
				onOff(settings.OrderUpdates), onOff(settings.PromotionalEmails), onOff(settings.StatusChanges))
			return nil
		},
	}

	cmd.Flags().BoolVar(&orderUpdates, "order-updates", false, "notify on order updates")
	cmd.Flags().BoolVar(&promotional, "promotional", false, "receive promotional emails")
	cmd.Flags().BoolVar(&statusChanges, "status-changes", false, "notify on status changes")
	return cmd
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
