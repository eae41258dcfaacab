package api

import (
	"context"
	"net/http"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

type profileUpdate struct {
	Name    string `json:"name"`
	Company string `json:"company"`
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (c *Client) UpdateProfile(ctx context.Context, name, company string) error {
	return c.do(ctx, http.MethodPut, "settings/profile", profileUpdate{Name: name, Company: company}, nil)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPut, "settings/password", passwordChange{CurrentPassword: current, NewPassword: next}, nil)
}

func (c *Client) NotificationSettings(ctx context.Context) (*domain.NotificationSettings, error) {
	var s domain.NotificationSettings
	if err := c.do(ctx, http.MethodGet, "settings/notifications", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateNotificationSettings(ctx context.Context, s domain.NotificationSettings) error {
	return c.do(ctx, http.MethodPut, "settings/notifications", s, nil)
}
