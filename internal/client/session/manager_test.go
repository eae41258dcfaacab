package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/parcelpoint/parcel-tracking/internal/client/store"
	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// memStore is an in-memory ports.SessionStore with failure injection.
type memStore struct {
	mu      sync.Mutex
	rec     *domain.PersistedSession
	loadErr error
	saveErr error
	userErr error
	clrErr  error
	clears  int
}

func (s *memStore) Load(context.Context) (*domain.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.rec == nil {
		return nil, domain.ErrNoSession
	}
	out := *s.rec
	out.User = cloneUser(s.rec.User)
	return &out, nil
}

func (s *memStore) Save(_ context.Context, token string, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.rec = &domain.PersistedSession{Token: token, User: cloneUser(user)}
	return nil
}

func (s *memStore) SaveUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userErr != nil {
		return s.userErr
	}
	if s.rec == nil {
		return domain.ErrNoSession
	}
	s.rec.User = cloneUser(user)
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clrErr != nil {
		return s.clrErr
	}
	s.clears++
	s.rec = nil
	return nil
}

type fetcherFunc func(ctx context.Context) (*domain.User, error)

func (f fetcherFunc) FetchUser(ctx context.Context) (*domain.User, error) { return f(ctx) }

var (
	ann = &domain.User{ID: "u1", Name: "Ann", Email: "ann@x.com", Role: domain.RoleCustomer}
	bob = &domain.User{ID: "u2", Name: "Bob", Email: "bob@x.com", Role: domain.RoleCourier}
)

func restored(t *testing.T, s *memStore) *Manager {
	t.Helper()
	m := NewManager(s, zerolog.Nop())
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	return m
}

func TestManager_StartsLoading(t *testing.T) {
	m := NewManager(&memStore{}, zerolog.Nop())
	ctx := context.Background()

	if st := m.State(); !st.Loading || st.Status() != domain.SessionLoading {
		t.Fatalf("expected loading state, got %+v", st)
	}
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	if _, err := m.AttachToken(req); !errors.Is(err, domain.ErrSessionLoading) {
		t.Fatalf("expected ErrSessionLoading, got %v", err)
	}
	if err := m.Logout(ctx); !errors.Is(err, domain.ErrSessionLoading) {
		t.Fatalf("expected logout to be refused while loading, got %v", err)
	}
	if err := m.Login(ctx, "T", nil); !errors.Is(err, domain.ErrSessionLoading) {
		t.Fatalf("expected login to be refused while loading, got %v", err)
	}
}

func TestManager_LoginThenRestoreOnNewManager(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()

	first := restored(t, s)
	if err := first.Login(ctx, "T", ann); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	second := restored(t, s)
	st := second.State()
	if !st.IsAuthenticated() || st.Token != "T" || st.Loading {
		t.Fatalf("expected restored authenticated session, got %+v", st)
	}
	if st.User == nil || *st.User != *ann {
		t.Fatalf("expected cached user, got %+v", st.User)
	}
}

func TestManager_LoginThenRestoreWithSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	db, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	m := NewManager(db, zerolog.Nop())
	_ = m.Restore(ctx)
	if err := m.Login(ctx, "T", bob); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	_ = db.Close()

	db2, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer db2.Close()

	m2 := NewManager(db2, zerolog.Nop())
	if err := m2.Restore(ctx); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if st := m2.State(); st.Token != "T" || st.User == nil || st.User.Role != domain.RoleCourier {
		t.Fatalf("unexpected restored state: %+v", st)
	}
}

func TestManager_LogoutFromAnyState(t *testing.T) {
	ctx := context.Background()

	anon := restored(t, &memStore{})
	withUser := restored(t, &memStore{})
	_ = withUser.Login(ctx, "T", ann)
	tokenOnly := restored(t, &memStore{})
	_ = tokenOnly.Login(ctx, "T", nil)

	for name, m := range map[string]*Manager{"anonymous": anon, "with user": withUser, "token only": tokenOnly} {
		if err := m.Logout(ctx); err != nil {
			t.Fatalf("%s: Logout returned error: %v", name, err)
		}
		st := m.State()
		if st.IsAuthenticated() || st.User != nil || st.Status() != domain.SessionAnonymous {
			t.Fatalf("%s: expected anonymous, got %+v", name, st)
		}
	}
}

func TestManager_LoginLogoutRestore(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()

	m := restored(t, s)
	_ = m.Login(ctx, "T", ann)
	_ = m.Logout(ctx)

	fresh := restored(t, s)
	if st := fresh.State(); st.IsAuthenticated() || st.User != nil {
		t.Fatalf("expected anonymous after logout, got %+v", st)
	}
}

func TestManager_UpdateUserNeverTouchesToken(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()
	m := restored(t, s)
	_ = m.Login(ctx, "T", ann)

	if err := m.UpdateUser(ctx, bob); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	renamed := *bob
	renamed.Name = "Robert"
	if err := m.UpdateUser(ctx, &renamed); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}

	st := m.State()
	if st.Token != "T" {
		t.Fatalf("token changed: %q", st.Token)
	}
	if st.User == nil || st.User.Name != "Robert" {
		t.Fatalf("expected latest user, got %+v", st.User)
	}
	if s.rec.Token != "T" || s.rec.User.Name != "Robert" {
		t.Fatalf("unexpected persisted record: %+v", s.rec)
	}
}

func TestManager_UpdateUserRequiresSession(t *testing.T) {
	m := restored(t, &memStore{})

	if err := m.UpdateUser(context.Background(), ann); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if m.State().User != nil {
		t.Fatalf("user must stay nil without a token")
	}
}

func TestManager_LogoutTwiceEqualsOnce(t *testing.T) {
	ctx := context.Background()

	once := restored(t, &memStore{})
	_ = once.Login(ctx, "T", ann)
	_ = once.Logout(ctx)

	twiceStore := &memStore{}
	twice := restored(t, twiceStore)
	_ = twice.Login(ctx, "T", ann)
	if err := twice.Logout(ctx); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	if err := twice.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}

	if once.State() != twice.State() {
		t.Fatalf("states differ: %+v vs %+v", once.State(), twice.State())
	}
	if twiceStore.rec != nil {
		t.Fatalf("expected nothing persisted")
	}
}

func TestManager_LoginPersistFailureLeavesMemory(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()
	m := restored(t, s)
	_ = m.Login(ctx, "OLD", ann)

	s.saveErr = errors.New("disk full")
	if err := m.Login(ctx, "NEW", bob); err == nil {
		t.Fatalf("expected error")
	}
	if st := m.State(); st.Token != "OLD" || st.User.ID != ann.ID {
		t.Fatalf("memory changed on failed login: %+v", st)
	}
}

func TestManager_LoginRejectsEmptyToken(t *testing.T) {
	m := restored(t, &memStore{})

	if err := m.Login(context.Background(), "", ann); !errors.Is(err, domain.ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestManager_LogoutStorageFailure(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()
	m := restored(t, s)
	_ = m.Login(ctx, "T", ann)

	s.clrErr = errors.New("locked")
	if err := m.Logout(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if !m.State().IsAuthenticated() {
		t.Fatalf("memory must be unchanged when storage delete fails")
	}
}

func TestManager_UpdateUserStorageFailureKeepsPrevious(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()
	m := restored(t, s)
	_ = m.Login(ctx, "T", ann)

	s.userErr = errors.New("io error")
	if err := m.UpdateUser(ctx, bob); err == nil {
		t.Fatalf("expected error")
	}
	if u := m.State().User; u == nil || u.ID != ann.ID {
		t.Fatalf("expected previous user kept, got %+v", u)
	}
}

func TestManager_RestoreReadFailure(t *testing.T) {
	m := NewManager(&memStore{loadErr: errors.New("corrupt")}, zerolog.Nop())

	if err := m.Restore(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	st := m.State()
	if st.Loading || st.IsAuthenticated() {
		t.Fatalf("expected anonymous, not loading: %+v", st)
	}
}

func TestManager_RestoreOnlyOnce(t *testing.T) {
	s := &memStore{}
	m := restored(t, s)
	_ = m.Login(context.Background(), "T", ann)

	if err := m.Restore(context.Background()); !errors.Is(err, domain.ErrAlreadyRestored) {
		t.Fatalf("expected ErrAlreadyRestored, got %v", err)
	}
	if st := m.State(); st.Loading || st.Token != "T" {
		t.Fatalf("second restore changed state: %+v", st)
	}
}

func TestManager_RestoreFetchesMissingProfile(t *testing.T) {
	s := &memStore{rec: &domain.PersistedSession{Token: "T"}}
	m := NewManager(s, zerolog.Nop())
	calls := 0
	m.SetProfileFetcher(fetcherFunc(func(context.Context) (*domain.User, error) {
		calls++
		return bob, nil
	}))

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one fetch, got %d", calls)
	}
	if u := m.State().User; u == nil || u.ID != bob.ID {
		t.Fatalf("expected fetched user, got %+v", u)
	}
	if s.rec.User == nil || s.rec.User.ID != bob.ID {
		t.Fatalf("expected fetched user persisted, got %+v", s.rec)
	}
}

func TestManager_RestoreFetchFailureKeepsToken(t *testing.T) {
	s := &memStore{rec: &domain.PersistedSession{Token: "T"}}
	m := NewManager(s, zerolog.Nop())
	calls := 0
	m.SetProfileFetcher(fetcherFunc(func(context.Context) (*domain.User, error) {
		calls++
		return nil, errors.New("network unreachable")
	}))

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("fetch failure must not fail restore: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
	st := m.State()
	if !st.IsAuthenticated() || st.User != nil {
		t.Fatalf("expected token-only session, got %+v", st)
	}
	if st.Can(domain.CapViewOwnOrders) {
		t.Fatalf("no capabilities without a user")
	}
}

func TestManager_RestoreFetchDiscardedAfterTokenChange(t *testing.T) {
	s := &memStore{rec: &domain.PersistedSession{Token: "OLD"}}
	m := NewManager(s, zerolog.Nop())
	m.SetProfileFetcher(fetcherFunc(func(ctx context.Context) (*domain.User, error) {
		// a new login lands while the fetch is in flight
		if err := m.Login(ctx, "NEW", ann); err != nil {
			t.Errorf("Login during fetch: %v", err)
		}
		return bob, nil
	}))

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	st := m.State()
	if st.Token != "NEW" || st.User == nil || st.User.ID != ann.ID {
		t.Fatalf("stale profile applied: %+v", st)
	}
}

func TestManager_AttachToken(t *testing.T) {
	m := restored(t, &memStore{})

	anon := httptest.NewRequest(http.MethodGet, "/orders", nil)
	tok, err := m.AttachToken(anon)
	if err != nil || tok != "" || anon.Header.Get("Authorization") != "" {
		t.Fatalf("anonymous request must carry no header: tok=%q err=%v", tok, err)
	}

	_ = m.Login(context.Background(), "T", ann)
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	tok, err = m.AttachToken(req)
	if err != nil || tok != "T" {
		t.Fatalf("unexpected attach result: tok=%q err=%v", tok, err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer T" {
		t.Fatalf("unexpected header: %q", got)
	}
}

func TestManager_ExpireOnlyMatchingToken(t *testing.T) {
	ctx := context.Background()
	m := restored(t, &memStore{})
	_ = m.Login(ctx, "NEW", ann)

	ended, err := m.Expire(ctx, "OLD")
	if err != nil || ended {
		t.Fatalf("stale 401 must not end a newer session: ended=%v err=%v", ended, err)
	}
	if !m.State().IsAuthenticated() {
		t.Fatalf("session ended unexpectedly")
	}

	ended, err = m.Expire(ctx, "NEW")
	if err != nil || !ended {
		t.Fatalf("expected session to end: ended=%v err=%v", ended, err)
	}
	if m.State().IsAuthenticated() {
		t.Fatalf("expected anonymous")
	}
}

func TestManager_Can(t *testing.T) {
	ctx := context.Background()
	m := restored(t, &memStore{})

	if m.Can(domain.CapEditProfile) {
		t.Fatalf("anonymous session must grant nothing")
	}

	_ = m.Login(ctx, "T", ann)
	if !m.Can(domain.CapViewOwnOrders) || m.Can(domain.CapManageDeliveries) {
		t.Fatalf("unexpected customer capabilities")
	}

	_ = m.UpdateUser(ctx, bob)
	if !m.Can(domain.CapManageDeliveries) || !m.Can(domain.CapViewDeliveryHistory) || m.Can(domain.CapViewOwnOrders) {
		t.Fatalf("unexpected courier capabilities")
	}
	if !m.Can(domain.CapEditProfile) {
		t.Fatalf("both roles edit their profile")
	}
}

func TestManager_StateIsACopy(t *testing.T) {
	m := restored(t, &memStore{})
	_ = m.Login(context.Background(), "T", ann)

	st := m.State()
	st.User.Name = "mutated"
	if m.State().User.Name != ann.Name {
		t.Fatalf("State leaked internal pointer")
	}
}

func TestManager_ConcurrentMutationsStayConsistent(t *testing.T) {
	s := &memStore{}
	ctx := context.Background()
	m := restored(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); _ = m.Login(ctx, "T", ann) }()
		go func() { defer wg.Done(); _ = m.Logout(ctx) }()
		go func() { defer wg.Done(); _ = m.UpdateUser(ctx, bob) }()
	}
	wg.Wait()

	st := m.State()
	if st.User != nil && st.Token == "" {
		t.Fatalf("user without token: %+v", st)
	}
	persisted, err := s.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNoSession):
		if st.IsAuthenticated() {
			t.Fatalf("memory authenticated but nothing persisted")
		}
	case err != nil:
		t.Fatalf("Load: %v", err)
	default:
		if persisted.Token != st.Token {
			t.Fatalf("memory and storage diverged: %q vs %q", st.Token, persisted.Token)
		}
	}
}
