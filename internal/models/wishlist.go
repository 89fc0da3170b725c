package models

import "time"

// WishlistItem is a single tracked purchase wish owned by exactly one user.
// Price always mirrors the most recent entry in PriceHistory; the store keeps
// the two in sync, callers never recompute either.
type WishlistItem struct {
	ID            string       `json:"id" db:"id"`
	OwnerID       string       `json:"-" db:"owner_id"`
	Name          string       `json:"name" db:"name"`
	Price         float64      `json:"price" db:"price"`
	Currency      string       `json:"currency" db:"currency"`
	DateAdded     time.Time    `json:"date_added" db:"date_added"`
	Purchased     bool         `json:"purchased" db:"purchased"`
	DatePurchased *time.Time   `json:"date_purchased,omitempty" db:"date_purchased"`
	Category      string       `json:"category,omitempty" db:"category"`
	Notes         string       `json:"notes,omitempty" db:"notes"`
	URL           string       `json:"url,omitempty" db:"url"`
	PriceHistory  []PriceEntry `json:"price_history"`
}

// PriceEntry is one observation in an item's price history, immutable once
// written. Entries are ordered by Date ascending.
type PriceEntry struct {
	Price float64   `json:"price" db:"price"`
	Date  time.Time `json:"date" db:"date"`
}

// DefaultCurrency is applied when an item is created without one.
const DefaultCurrency = "USD"

// CurrentPrice returns the price of the latest history entry, or the
// denormalized Price field when the history has not been loaded.
func (i *WishlistItem) CurrentPrice() float64 {
	if n := len(i.PriceHistory); n > 0 {
		return i.PriceHistory[n-1].Price
	}
	return i.Price
}
