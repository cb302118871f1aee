package repository

import (
	"context"

	"tableside/internal/domain"
)

type MenuRepository interface {
	ListAvailable(ctx context.Context) ([]domain.MenuItem, error)
	ListAll(ctx context.Context) ([]domain.MenuItem, error)
	FindByID(ctx context.Context, id uint64) (*domain.MenuItem, error)
	Create(ctx context.Context, item *domain.MenuItem) error
	// Update overwrites every mutable column. It reports false when no row has item.ID.
	Update(ctx context.Context, item *domain.MenuItem) (bool, error)
	Delete(ctx context.Context, id uint64) (bool, error)
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, items []domain.MenuItem) error
}
