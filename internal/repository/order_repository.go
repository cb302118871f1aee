package repository

import (
	"context"

	"tableside/internal/domain"
)

// OrderRepository returns (nil, nil) from single-row lookups when the row is
// absent; callers decide whether that is an error.
type OrderRepository interface {
	// Create inserts the order and all of its lines in one transaction.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	// List returns orders newest first with lines and their menu items
	// preloaded. A nil tableNumber lists every table.
	List(ctx context.Context, tableNumber *int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id uint64, status domain.OrderStatus) (*domain.Order, error)
}
