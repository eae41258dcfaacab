package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

type statusUpdate struct {
	Status string `json:"status"`
}

type historyUpdate struct {
	HistoryEvent domain.HistoryEvent `json:"historyEvent"`
}

func (c *Client) listOrders(ctx context.Context, path string) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Orders lists the customer's orders.
func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	return c.listOrders(ctx, "orders")
}

func (c *Client) ActiveOrders(ctx context.Context) ([]domain.Order, error) {
	return c.listOrders(ctx, "orders/active")
}

func (c *Client) Order(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodGet, "orders/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return c.do(ctx, http.MethodPatch, "orders/"+url.PathEscape(id)+"/status", statusUpdate{Status: status}, nil)
}

// AddHistoryEvent appends a tracking entry to an order.
func (c *Client) AddHistoryEvent(ctx context.Context, id string, ev domain.HistoryEvent) error {
	return c.do(ctx, http.MethodPut, "orders/"+url.PathEscape(id), historyUpdate{HistoryEvent: ev}, nil)
}

// CourierOrders lists orders assigned to the courier.
func (c *Client) CourierOrders(ctx context.Context) ([]domain.Order, error) {
	return c.listOrders(ctx, "courier/orders")
}

func (c *Client) ActiveCourierOrders(ctx context.Context) ([]domain.Order, error) {
	return c.listOrders(ctx, "courier/orders/active")
}

func (c *Client) UpdateCourierOrderStatus(ctx context.Context, id, status string) error {
	return c.do(ctx, http.MethodPatch, "courier/orders/"+url.PathEscape(id)+"/status", statusUpdate{Status: status}, nil)
}

// DeliveryHistory lists the courier's completed deliveries.
func (c *Client) DeliveryHistory(ctx context.Context) ([]domain.Order, error) {
	return c.listOrders(ctx, "courier/deliveries/history")
}
