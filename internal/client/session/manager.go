// Package session owns the client's single authentication session: its
// restore from device storage, login, logout and the bearer token attached to
// outgoing requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
	"github.com/parcelpoint/parcel-tracking/internal/core/ports"
)

var errNilUser = errors.New("nil user")

// ProfileFetcher loads the signed-in user's profile. It is used once during
// Restore when a token was persisted without a user.
type ProfileFetcher interface {
	FetchUser(ctx context.Context) (*domain.User, error)
}

// Manager is the process-wide session. Create one in main and pass it by
// reference. All mutations are serialized.
type Manager struct {
	mu       sync.Mutex
	store    ports.SessionStore
	fetcher  ProfileFetcher
	log      zerolog.Logger
	token    string
	user     *domain.User
	loading  bool
	restored bool
}

// NewManager returns a manager in the loading state. Call Restore before use.
func NewManager(store ports.SessionStore, log zerolog.Logger) *Manager {
	return &Manager{store: store, log: log, loading: true}
}

// SetProfileFetcher wires the profile source used by Restore. The API client
// needs the manager to exist first, hence the setter.
func (m *Manager) SetProfileFetcher(f ProfileFetcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetcher = f
}

// Restore loads the persisted session. It runs once; afterwards the session
// is never loading again, even when the read failed.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return domain.ErrAlreadyRestored
	}
	m.restored = true

	persisted, err := m.store.Load(ctx)
	m.loading = false
	switch {
	case errors.Is(err, domain.ErrNoSession):
		m.mu.Unlock()
		return nil
	case err != nil:
		m.mu.Unlock()
		m.log.Error().Err(err).Msg("session restore failed, continuing signed out")
		return fmt.Errorf("restore session: %w", err)
	}

	m.token = persisted.Token
	m.user = cloneUser(persisted.User)
	token, fetcher := m.token, m.fetcher
	needProfile := m.token != "" && m.user == nil && fetcher != nil
	m.mu.Unlock()

	if needProfile {
		m.fetchProfile(ctx, token, fetcher)
	}
	return nil
}

// fetchProfile runs outside the lock. The result is applied only if the
// session still holds token.
func (m *Manager) fetchProfile(ctx context.Context, token string, fetcher ProfileFetcher) {
	user, err := fetcher.FetchUser(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("profile fetch during restore failed, keeping token only")
		return
	}
	if user == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != token || m.user != nil {
		return
	}
	if err := m.store.SaveUser(ctx, user); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist fetched profile")
		return
	}
	m.user = cloneUser(user)
}

// Login persists token and user as one record, then adopts them. A nil user
// clears any previously cached user.
func (m *Manager) Login(ctx context.Context, token string, user *domain.User) error {
	if token == "" {
		return domain.ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return domain.ErrSessionLoading
	}

	if err := m.store.Save(ctx, token, user); err != nil {
		return fmt.Errorf("login: persist session: %w", err)
	}
	m.token = token
	m.user = cloneUser(user)
	return nil
}

// Logout removes the persisted record, then clears memory. Calling it on an
// anonymous session is a no-op apart from the storage delete.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutLocked(ctx)
}

func (m *Manager) logoutLocked(ctx context.Context) error {
	if m.loading {
		return domain.ErrSessionLoading
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: clear session: %w", err)
	}
	m.token = ""
	m.user = nil
	return nil
}

// Expire ends the session after an authorization failure, but only if it
// still holds token. It reports whether the session was ended.
func (m *Manager) Expire(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" || m.loading || m.token != token {
		return false, nil
	}
	if err := m.logoutLocked(ctx); err != nil {
		return false, err
	}
	m.log.Info().Msg("session expired by server, signed out")
	return true, nil
}

// UpdateUser replaces the cached user. The token is never touched.
func (m *Manager) UpdateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errNilUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return domain.ErrSessionLoading
	}
	if m.token == "" {
		return domain.ErrNotAuthenticated
	}

	if err := m.store.SaveUser(ctx, user); err != nil {
		m.log.Error().Err(err).Msg("failed to persist user, keeping previous value")
		return fmt.Errorf("update user: %w", err)
	}
	m.user = cloneUser(user)
	return nil
}

// AttachToken sets the bearer header when a token is held and returns the
// token it attached (empty for an anonymous request).
func (m *Manager) AttachToken(req *http.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return "", domain.ErrSessionLoading
	}
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}
	return m.token, nil
}

// State returns a copy of the session.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.SessionState{Token: m.token, User: cloneUser(m.user), Loading: m.loading}
}

// Can reports whether the signed-in user's role grants c.
func (m *Manager) Can(c domain.Capability) bool {
	return m.State().Can(c)
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
