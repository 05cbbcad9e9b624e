package identity

import (
	"context"
	"time"
)

// Role is the coarse authorization role of a principal.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the canonical principal.
// PasswordHash is server-side only and must never be serialized to clients.
type User struct {
	ID          string
	FirstName   string
	MiddleName  *string
	LastName    string
	Age         *int
	State       *string
	Country     *string
	Email       string
	PhoneNumber string
	Role        Role
	IsVerified  bool

	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserInput describes a registration after validation and hashing.
type CreateUserInput struct {
	FirstName    string
	MiddleName   *string
	LastName     string
	Age          *int
	State        *string
	Country      *string
	Email        string
	PhoneNumber  string
	Role         Role
	IsVerified   bool
	PasswordHash string
	Now          time.Time
}

// Store is the principal persistence boundary.
type Store interface {
	// CreateUser inserts a principal. Duplicate email or phone returns ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	// FindByEmail looks a principal up by normalized email. Missing returns NotFoundError.
	FindByEmail(ctx context.Context, email string) (User, error)
	// FindByID looks a principal up by id. Missing returns NotFoundError.
	FindByID(ctx context.Context, id string) (User, error)
	// UpdatePasswordHash replaces the stored hash (rehash on login).
	UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error
}

func (in CreateUserInput) check(op string) error {
	switch {
	case in.FirstName == "" || in.LastName == "":
		return invalid(op, "first and last name are required")
	case NormalizeEmail(in.Email) == "":
		return invalid(op, "email is required")
	case NormalizePhone(in.PhoneNumber) == "":
		return invalid(op, "phone number is required")
	case in.PasswordHash == "":
		return invalid(op, "password hash is required")
	case in.Role != "" && in.Role != RoleUser && in.Role != RoleAdmin:
		return invalid(op, "unknown role")
	}
	return nil
}

func (in CreateUserInput) role() Role {
	if in.Role == "" {
		return RoleUser
	}
	return in.Role
}
