package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

// fakeBackend serves the auth service under /v1 and the orders API under /api.
type fakeBackend struct {
	mu            sync.Mutex
	role          domain.Role
	notifications domain.NotificationSettings
	lastPassword  string
}

// methodMux routes "METHOD /path" patterns; the Go 1.21 toolchain's
// http.ServeMux does not understand method-qualified patterns.
type methodMux map[string]map[string]http.HandlerFunc

func (m methodMux) HandleFunc(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	if m[path] == nil {
		m[path] = map[string]http.HandlerFunc{}
	}
	m[path][method] = h
}

func (m methodMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	byMethod, ok := m[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h, ok := byMethod[r.Method]
	if !ok {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h(w, r)
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := methodMux{}
	write := func(w http.ResponseWriter, status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login: %v", err)
		}
		f.mu.Lock()
		f.lastPassword = body.Password
		f.mu.Unlock()
		if body.Password != "secret1" {
			write(w, http.StatusUnauthorized, nil)
			return
		}
		write(w, http.StatusOK, map[string]string{"token": "tok"})
	})
	mux.HandleFunc("GET /api/profile", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		role := f.role
		f.mu.Unlock()
		write(w, http.StatusOK, domain.Profile{ID: "u1", Name: "Ana", Email: "a@x.com", Role: role})
	}))
	mux.HandleFunc("GET /api/orders", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, []domain.Order{{ID: "o1", Title: "Books", Status: "in_transit", EstimatedTime: "2d"}})
	}))
	mux.HandleFunc("GET /api/courier/orders", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, []domain.Order{{ID: "o9", Title: "Lamp", Status: "assigned"}})
	}))
	mux.HandleFunc("GET /api/settings/notifications", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		write(w, http.StatusOK, f.notifications)
	}))
	mux.HandleFunc("PUT /api/settings/notifications", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&f.notifications); err != nil {
			t.Errorf("decode notifications: %v", err)
		}
		write(w, http.StatusOK, nil)
	}))
	return mux
}

func setup(t *testing.T, role domain.Role) *fakeBackend {
	t.Helper()
	backend := &fakeBackend{role: role, notifications: domain.NotificationSettings{OrderUpdates: true}}
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	t.Setenv("PARCEL_API_URL", srv.URL+"/api")
	t.Setenv("PARCEL_AUTH_URL", srv.URL+"/v1")
	t.Setenv("PARCEL_SESSION_DB", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("LOG_LEVEL", "error")
	return backend
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func TestParcelctl_SessionSurvivesInvocations(t *testing.T) {
	setup(t, domain.RoleCustomer)

	out, err := run(t, "", "login", "--email", "a@x.com", "--password", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "signed in as a@x.com (customer)") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, err = run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Ana <a@x.com>") || !strings.Contains(out, "role: customer") {
		t.Fatalf("unexpected whoami output: %q", out)
	}

	out, err = run(t, "", "orders")
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if !strings.Contains(out, "o1") || !strings.Contains(out, "in_transit") {
		t.Fatalf("unexpected orders output: %q", out)
	}

	if _, err := run(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, err = run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami after logout: %v", err)
	}
	if strings.TrimSpace(out) != "not signed in" {
		t.Fatalf("expected signed out, got %q", out)
	}
}

func TestParcelctl_SignedOutCommandsFail(t *testing.T) {
	setup(t, domain.RoleCustomer)

	for _, args := range [][]string{
		{"orders"},
		{"order", "o1"},
		{"courier", "orders"},
		{"settings", "notifications"},
	} {
		if _, err := run(t, "", args...); !errors.Is(err, errSignedOut) {
			t.Fatalf("%v: expected errSignedOut, got %v", args, err)
		}
	}
}

func TestParcelctl_RoleGatesCommands(t *testing.T) {
	setup(t, domain.RoleCustomer)

	if _, err := run(t, "", "login", "--email", "a@x.com", "--password", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := run(t, "", "courier", "orders"); !errors.Is(err, errForbidden) {
		t.Fatalf("expected errForbidden for a customer, got %v", err)
	}
}

func TestParcelctl_CourierSeesAssignedOrders(t *testing.T) {
	setup(t, domain.RoleCourier)

	if _, err := run(t, "", "login", "--email", "a@x.com", "--password", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := run(t, "", "courier", "orders")
	if err != nil {
		t.Fatalf("courier orders: %v", err)
	}
	if !strings.Contains(out, "o9") {
		t.Fatalf("unexpected courier orders output: %q", out)
	}
	if _, err := run(t, "", "orders"); !errors.Is(err, errForbidden) {
		t.Fatalf("expected errForbidden for a courier listing customer orders, got %v", err)
	}
}

func TestParcelctl_LoginReadsPasswordFromStdin(t *testing.T) {
	backend := setup(t, domain.RoleCustomer)

	if _, err := run(t, "secret1\n", "login", "--email", "a@x.com"); err != nil {
		t.Fatalf("login: %v", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.lastPassword != "secret1" {
		t.Fatalf("expected password from stdin, server got %q", backend.lastPassword)
	}
}

func TestParcelctl_RejectedLoginStaysSignedOut(t *testing.T) {
	setup(t, domain.RoleCustomer)

	if _, err := run(t, "", "login", "--email", "a@x.com", "--password", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	out, err := run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if strings.TrimSpace(out) != "not signed in" {
		t.Fatalf("expected signed out, got %q", out)
	}
}

func TestParcelctl_NotificationToggle(t *testing.T) {
	backend := setup(t, domain.RoleCustomer)

	if _, err := run(t, "", "login", "--email", "a@x.com", "--password", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := run(t, "", "settings", "notifications", "--promotional=true", "--order-updates=false")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if !strings.Contains(out, "promotional emails: on") || !strings.Contains(out, "order updates:      off") {
		t.Fatalf("unexpected output: %q", out)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	want := domain.NotificationSettings{OrderUpdates: false, PromotionalEmails: true}
	if backend.notifications != want {
		t.Fatalf("server settings = %+v, want %+v", backend.notifications, want)
	}
}
