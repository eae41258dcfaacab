package ports

import (
	"context"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// CredentialRepository defines persistence for login credentials.
// FindByEmail returns domain.ErrUserNotFound when no record matches and
// Create returns domain.ErrUserExists on a duplicate email.
type CredentialRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Credential, error)
	Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
}
