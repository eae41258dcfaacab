package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenData struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token. The request carries no bearer
// token and a rejection does not touch the session; the caller decides what
// to persist.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out tokenData
	err := c.doAt(ctx, c.authURL, http.MethodPost, "auth/login", credentials{Email: email, Password: password}, &out, false)
	if errors.Is(err, domain.ErrUnauthorized) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Status: http.StatusOK, Message: "login response carried no token"}
	}
	return out.Token, nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchUser projects the profile onto the session user.
func (c *Client) FetchUser(ctx context.Context) (*domain.User, error) {
	p, err := c.Profile(ctx)
	if err != nil {
		return nil, err
	}
	u := p.User()
	return &u, nil
}
