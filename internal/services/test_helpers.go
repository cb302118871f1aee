package services

import (
	"time"

	"tableside/internal/domain"

	"github.com/shopspring/decimal"
)

func CreateMockOrder(id uint64, table int, status domain.OrderStatus, lines ...domain.OrderLine) *domain.Order {
	return &domain.Order{
		ID:          id,
		TableNumber: table,
		Status:      status,
		CreatedAt:   time.Now(),
		Lines:       lines,
	}
}

func CreateMockMenuItem(id uint64, name, price string, available bool) *domain.MenuItem {
	return &domain.MenuItem{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Available:   available,
	}
}

const (
	TestOrderID     = uint64(5)
	TestTableNumber = 3
	TestJWTSecret   = "test-secret"
	TestAdminName   = "admin"
	TestAdminPass   = "admin123"
)
