package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer order. TotalAmount is derived from the associated
// products and is never written from client input.
type Order struct {
	ID           int64           `json:"id" db:"id"`
	CustomerName string          `json:"customer_name" db:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount" db:"total_amount"`
	OrderDate    time.Time       `json:"order_date" db:"order_date"`
	Products     []*Product      `json:"products" db:"-"`
}

// ProductIDs returns the ids of the associated products in ascending order.
func (o *Order) ProductIDs() []int64 {
	ids := make([]int64, 0, len(o.Products))
	for _, p := range o.Products {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ComputeTotal sums product prices.
func ComputeTotal(products []*Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price)
	}
	return total
}

// UniqueIDs drops duplicates and returns the ids sorted ascending. An order
// references any product at most once.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MissingIDs returns the requested ids absent from found, ascending.
func MissingIDs(requested, found []int64) []int64 {
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}

	var missing []int64
	for _, id := range UniqueIDs(requested) {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
