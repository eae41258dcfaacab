package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

func newOrdersCmd(a *app) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.require(domain.CapViewOwnOrders); err != nil {
				return err
			}

			fetch := a.client.Orders
			if active {
				fetch = a.client.ActiveOrders
			}
			orders, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), orders)
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "only orders that are not delivered yet")
	return cmd
}

func newOrderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <id>",
		Short: "Show one order with its tracking history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			order, err := a.client.Order(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOrder(cmd.OutOrStdout(), order)
		},
	}

	cmd.AddCommand(newOrderStatusCmd(a), newOrderEventCmd(a))
	return cmd
}

func newOrderStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change an order's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			if err := a.client.UpdateOrderStatus(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", args[0], args[1])
			return nil
		},
	}
}

func newOrderEventCmd(a *app) *cobra.Command {
	var ev domain.HistoryEvent

	cmd := &cobra.Command{
		Use:   "event <id>",
		Short: "Append a tracking event to an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			if ev.Date == "" {
				ev.Date = time.Now().UTC().Format(time.RFC3339)
			}
			if err := a.client.AddHistoryEvent(cmd.Context(), args[0], ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %q at %s to order %s\n", ev.Status, ev.Location, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&ev.Status, "status", "", "event status")
	cmd.Flags().StringVar(&ev.Location, "location", "", "where the parcel is")
	cmd.Flags().StringVar(&ev.Date, "date", "", "event time (default now, RFC 3339)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newCourierCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courier",
		Short: "Delivery commands for courier accounts",
	}

	var active bool
	orders := &cobra.Command{
		Use:   "orders",
		Short: "List the orders assigned to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.require(domain.CapManageDeliveries); err != nil {
				return err
			}
			fetch := a.client.CourierOrders
			if active {
				fetch = a.client.ActiveCourierOrders
			}
			list, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), list)
		},
	}
	orders.Flags().BoolVar(&active, "active", false, "only deliveries in progress")

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Update the status of an assigned order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.require(domain.CapManageDeliveries); err != nil {
				return err
			}
			if err := a.client.UpdateCourierOrderStatus(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", args[0], args[1])
			return nil
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "List completed deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.require(domain.CapViewDeliveryHistory); err != nil {
				return err
			}
			list, err := a.client.DeliveryHistory(cmd.Context())
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), list)
		},
	}

	cmd.AddCommand(orders, status, history)
	return cmd
}
