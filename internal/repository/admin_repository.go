package repository

import (
	"context"

	"tableside/internal/domain"
)

type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.AdminUser, error)
	// Upsert inserts the user or replaces the password hash of an existing username.
	Upsert(ctx context.Context, user *domain.AdminUser) error
}
