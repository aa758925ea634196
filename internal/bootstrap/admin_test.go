package bootstrap_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhobart/minimart/internal/bootstrap"
	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seed() bootstrap.AdminSeed {
	return bootstrap.AdminSeed{
		Username: "admin",
		Email:    "admin@minimart.test",
		Password: "super-secret-1",
	}
}

func TestEnsureAdminCreatesAccount(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()

	require.NoError(t, bootstrap.EnsureAdmin(ctx, users, seed(), testLogger()))

	admin, err := users.FindByEmail(ctx, "admin@minimart.test")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.PasswordHash)
	assert.NotEqual(t, "super-secret-1", admin.PasswordHash)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()

	require.NoError(t, bootstrap.EnsureAdmin(ctx, users, seed(), testLogger()))
	first, err := users.FindByEmail(ctx, "admin@minimart.test")
	require.NoError(t, err)

	// A second run, even with a different password, must leave the
	// existing account untouched.
	changed := seed()
	changed.Password = "different-password"
	require.NoError(t, bootstrap.EnsureAdmin(ctx, users, changed, testLogger()))

	second, err := users.FindByEmail(ctx, "admin@minimart.test")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PasswordHash, second.PasswordHash)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnsureAdminRejectsNonAdminEmailCollision(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()

	_, err := users.Create(ctx, domain.UserInput{
		Username:     "shopper",
		Email:        "admin@minimart.test",
		Role:         domain.RoleUser,
		PasswordHash: "x",
	})
	require.NoError(t, err)

	err = bootstrap.EnsureAdmin(ctx, users, seed(), testLogger())
	assert.Error(t, err)
}
