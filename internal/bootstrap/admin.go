package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhobart/minimart/internal/auth"
	"github.com/rhobart/minimart/internal/domain"
)

// AdminSeed describes the administrator account guaranteed to exist after
// startup.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin makes sure the seed admin account exists. It is safe to run on
// every startup and against a shared database: the account is looked up by
// email and only created when absent. An existing account is left untouched,
// including its password.
func EnsureAdmin(ctx context.Context, users domain.UserStore, seed AdminSeed, logger *slog.Logger) error {
	existing, err := users.FindByEmail(ctx, seed.Email)
	if err == nil {
		if !existing.IsAdmin() {
			return fmt.Errorf("seed admin email %q belongs to a non-admin account", seed.Email)
		}
		return nil
	}
	if !domain.IsCode(err, domain.ENOTFOUND) {
		return fmt.Errorf("failed to look up seed admin: %w", err)
	}

	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("failed to hash seed admin password: %w", err)
	}

	_, err = users.Create(ctx, domain.UserInput{
		Username:     seed.Username,
		Email:        seed.Email,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		// Another instance may have created the account between the
		// lookup and the insert.
		if domain.IsCode(err, domain.ECONFLICT) {
			return nil
		}
		return fmt.Errorf("failed to create seed admin: %w", err)
	}

	logger.Info("seed admin account created", "email", seed.Email)
	return nil
}
