package domain

import "github.com/shopspring/decimal"

func init() {
	// The frontend does arithmetic on prices, so they go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type MenuItem struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;check:chk_menu_items_price,price > 0"`
	Available   bool            `json:"available" gorm:"not null"`
}
