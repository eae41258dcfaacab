package ports

import "context"

// LoginThrottle counts failed logins per email within a sliding window.
type LoginThrottle interface {
	// Blocked reports whether the email has reached the failure limit.
	Blocked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}
