package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog. SoldItemsCount is derived
// from order associations and is never written from client input.
type Product struct {
	ID             int64           `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	CategoryID     int64           `json:"category_id" db:"category_id"`
	Category       *Category       `json:"category,omitempty" db:"-"`
	Price          decimal.Decimal `json:"price" db:"price"`
	SoldItemsCount int             `json:"sold_items_count" db:"sold_items_count"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Category represents a product category
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
