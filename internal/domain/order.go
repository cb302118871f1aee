package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every recognized status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) IsValid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the lifecycle ends at s. Status updates do not
// consult it; any recognized status may follow any other.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID             uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	TableNumber    int         `json:"table_number" gorm:"not null;index"`
	Status         OrderStatus `json:"status" gorm:"type:varchar(20);not null;check:chk_orders_status,status IN ('pending','preparing','ready','delivered','cancelled')"`
	IdempotencyKey *string     `json:"-" gorm:"size:128;uniqueIndex"`
	RequestHash    *string     `json:"-" gorm:"size:64"`
	CreatedAt      time.Time   `json:"created_at" gorm:"autoCreateTime"`
	Lines          []OrderLine `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderLine struct {
	ID         uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID    uint64    `json:"order_id" gorm:"not null;index"`
	MenuItemID uint64    `json:"menu_item_id" gorm:"not null;index"`
	Quantity   int       `json:"quantity" gorm:"not null;check:chk_order_items_quantity,quantity > 0"`
	MenuItem   *MenuItem `json:"-" gorm:"foreignKey:MenuItemID;constraint:OnDelete:RESTRICT"`
}

func (OrderLine) TableName() string { return "order_items" }

// OrderView is an order with its lines priced from the current catalog.
type OrderView struct {
	ID          uint64          `json:"id"`
	TableNumber int             `json:"table_number"`
	CreatedAt   time.Time       `json:"created_at"`
	Status      OrderStatus     `json:"status"`
	Items       []OrderLineView `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

type OrderLineView struct {
	ID            uint64          `json:"id"`
	MenuItemID    uint64          `json:"menu_item_id"`
	Quantity      int             `json:"quantity"`
	MenuItemName  string          `json:"menu_item_name"`
	MenuItemPrice decimal.Decimal `json:"menu_item_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// NewOrderView joins o's lines with their preloaded menu items. A line whose
// menu item was not loaded keeps an empty name and a zero price.
func NewOrderView(o Order) OrderView {
	v := OrderView{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		CreatedAt:   o.CreatedAt,
		Status:      o.Status,
		Items:       make([]OrderLineView, 0, len(o.Lines)),
		Total:       decimal.Zero,
	}
	for _, l := range o.Lines {
		lv := OrderLineView{
			ID:            l.ID,
			MenuItemID:    l.MenuItemID,
			Quantity:      l.Quantity,
			MenuItemPrice: decimal.Zero,
		}
		if l.MenuItem != nil {
			lv.MenuItemName = l.MenuItem.Name
			lv.MenuItemPrice = l.MenuItem.Price
		}
		lv.LineTotal = lv.MenuItemPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		v.Total = v.Total.Add(lv.LineTotal)
		v.Items = append(v.Items, lv)
	}
	return v
}
