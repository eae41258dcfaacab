package ports

import (
	"context"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// Probe reports whether a single dependency is usable.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error { return f(ctx) }

type HealthService interface {
	CheckHealth(ctx context.Context) domain.HealthReport
}
