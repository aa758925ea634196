package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhobart/minimart/internal/domain"
	"github.com/shopspring/decimal"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ domain.UserStore = (*UserStore)(nil)

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, username, email, password_hash, address, contact, role, wallet_balance, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Address, &u.Contact, &role, &u.WalletBalance, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.ParseRole(role)
	return &u, nil
}

// Create inserts a new user account.
func (s *UserStore) Create(ctx context.Context, input domain.UserInput) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, address, contact, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		input.Username, input.Email, input.PasswordHash,
		input.Address, input.Contact, string(input.Role),
	)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, domain.Internal(err, "user.create", "failed to create user")
	}
	return u, nil
}

// FindByID retrieves a user by id.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal(err, "user.get", "failed to get user")
	}
	return u, nil
}

// FindByEmail retrieves a user by email for authentication and uniqueness
// checks.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal(err, "user.get_by_email", "failed to get user")
	}
	return u, nil
}

// List returns all users, newest first, for admin user management.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.Internal(err, "user.list", "failed to list users")
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.Internal(err, "user.list", "failed to scan user")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "user.list", "failed to read users")
	}

	return users, nil
}

// Update applies the non-empty fields of input. Role changes are only
// applied when allowRole is set.
func (s *UserStore) Update(ctx context.Context, id int64, input domain.UserInput, allowRole bool) error {
	query := `UPDATE users SET `
	args := []any{id}
	set := func(col, val string) {
		if val == "" {
			return
		}
		if len(args) > 1 {
			query += ", "
		}
		args = append(args, val)
		query += col + ` = $` + itoa(len(args))
	}

	set("username", input.Username)
	set("email", input.Email)
	set("address", input.Address)
	set("contact", input.Contact)
	set("password_hash", input.PasswordHash)
	if allowRole {
		set("role", string(input.Role))
	}

	if len(args) == 1 {
		return nil
	}
	query += ` WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return domain.Internal(err, "user.update", "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeductWalletBalance subtracts amount from the user's balance in a single
// guarded UPDATE. The WHERE clause enforces that the balance covers the
// amount, so a losing deduction changes nothing.
func (s *UserStore) DeductWalletBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.Invalid("user.deduct_wallet", "deduction amount must not be negative")
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET wallet_balance = wallet_balance - $2
		WHERE id = $1 AND wallet_balance >= $2`,
		userID, amount,
	)
	if err != nil {
		return domain.Internal(err, "user.deduct_wallet", "failed to deduct wallet balance")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}
