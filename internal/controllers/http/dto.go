package http

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	TableNumber int                `json:"tableNumber"`
	Items       []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	MenuItemID uint64 `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type PlaceOrderResponse struct {
	Message string `json:"message"`
	OrderID uint64 `json:"order_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type MenuItemRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Available   *bool            `json:"available"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
