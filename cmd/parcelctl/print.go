package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

func printOrders(w io.Writer, orders []domain.Order) error {
	if len(orders) == 0 {
		_, err := fmt.Fprintln(w, "no orders")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tETA")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Title, o.Status, o.EstimatedTime)
	}
	return tw.Flush()
}

func printOrder(w io.Writer, o *domain.Order) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", o.ID)
	fmt.Fprintf(tw, "title:\t%s\n", o.Title)
	if o.Desc != "" {
		fmt.Fprintf(tw, "description:\t%s\n", o.Desc)
	}
	fmt.Fprintf(tw, "status:\t%s\n", o.Status)
	fmt.Fprintf(tw, "eta:\t%s\n", o.EstimatedTime)
	if o.Address != "" {
		fmt.Fprintf(tw, "address:\t%s %s\n", o.Address, o.Postal)
	}
	if o.Weight > 0 {
		fmt.Fprintf(tw, "weight:\t%.2f\n", o.Weight)
	}
	if o.Size != nil {
		fmt.Fprintf(tw, "size:\t%gx%gx%g\n", o.Size.X, o.Size.Y, o.Size.Z)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(o.History) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nhistory:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ev := range o.History {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", ev.Date, ev.Status, ev.Location)
	}
	return tw.Flush()
}
