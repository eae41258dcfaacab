package domain

import "time"

// Role is the actor type carried by a client session.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
)

// Credential is the stored login record. The hash never leaves the service.
type Credential struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is the profile projection cached by the client alongside its token.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile is the full profile view served by the orders API.
type Profile struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Company    string `json:"company,omitempty"`
	JoinedDate string `json:"joinedDate,omitempty"`
}

// User projects the profile onto the fields the session caches.
func (p Profile) User() User {
	return User{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role}
}
