package ports

import (
	"context"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// SessionStore persists the client session as one record.
// Load returns domain.ErrNoSession when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*domain.PersistedSession, error)
	// Save writes token and user together. A nil user clears any cached user.
	Save(ctx context.Context, token string, user *domain.User) error
	// SaveUser replaces the cached user and leaves the token alone.
	SaveUser(ctx context.Context, user *domain.User) error
	// Clear removes the whole record in one operation.
	Clear(ctx context.Context) error
}
