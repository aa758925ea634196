package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = &Error{Code: ENOTFOUND, Message: "User not found"}
	ErrEmailTaken          = &Error{Code: ECONFLICT, Message: "This email address is already registered"}
	ErrInvalidCredentials  = &Error{Code: EUNAUTHORIZED, Message: "Invalid email or password"}
	ErrInsufficientBalance = &Error{Code: EPAYMENT, Message: "Insufficient wallet balance"}
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps arbitrary input to a valid role, defaulting to user.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// User is a customer or admin account. WalletBalance backs the stored-balance
// payment method and is only mutated through the guarded deduction.
type User struct {
	ID            int64
	Username      string
	Email         string
	PasswordHash  string
	Address       string
	Contact       string
	Role          Role
	WalletBalance decimal.Decimal
	CreatedAt     time.Time
}

// IsAdmin reports whether the user may use the admin surface.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserInput carries profile fields for create/update operations.
type UserInput struct {
	Username string
	Email    string
	Address  string
	Contact  string
	Role     Role
	// PasswordHash, when non-empty, replaces the stored hash.
	PasswordHash string
}

// UserStore provides durable user persistence.
type UserStore interface {
	Create(ctx context.Context, input UserInput) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)

	// Update applies non-empty fields of input. Role changes require
	// allowRole, mirroring the admin-only role escalation path.
	Update(ctx context.Context, id int64, input UserInput, allowRole bool) error

	// DeductWalletBalance atomically subtracts amount from the user's
	// balance, guarded so the balance always covers the deduction.
	// Returns ErrInsufficientBalance when the guard fails; no partial
	// deduction is ever made.
	DeductWalletBalance(ctx context.Context, userID int64, amount decimal.Decimal) error
}
