package ports

import (
	"context"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// AuthEventSink receives auth events off the request path.
type AuthEventSink interface {
	Handle(ctx context.Context, event domain.AuthEvent) error
}

// AuthEventPublisher hands events to the async dispatcher. It must not block.
type AuthEventPublisher interface {
	Publish(event domain.AuthEvent)
}
