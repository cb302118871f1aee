package domain

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderPlacedEvent struct {
	OrderID     uint64           `json:"orderId"`
	TableNumber int              `json:"tableNumber"`
	Items       []OrderEventItem `json:"items"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type OrderEventItem struct {
	MenuItemID uint64 `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

type OrderStatusChangedEvent struct {
	OrderID     uint64      `json:"orderId"`
	TableNumber int         `json:"tableNumber"`
	Status      OrderStatus `json:"status"`
	ChangedAt   time.Time   `json:"changedAt"`
}
