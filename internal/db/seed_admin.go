package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/housepoints/internal/config"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/security"
	"github.com/google/uuid"
)

// AdminStore is the slice of the users repository the seeder needs.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the bootstrap admin account when ADMIN_PASSWORD is set and
// no user with ADMIN_USERNAME exists yet. An existing account is left untouched.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config) (bool, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := users.GetByUsername(ctx, cfg.AdminUsername)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	now := time.Now().UTC()

	_, err = users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	// lost a race with another instance seeding the same account
	if errors.Is(err, user.ErrUsernameTaken) {
		return false, nil
	}

	return err == nil, err
}
