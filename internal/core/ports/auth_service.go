package ports

import (
	"context"
)

// Identity is the subject carried by a verified token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, id Identity) (*Identity, error)
}
