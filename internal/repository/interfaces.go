package repository

import (
	"context"
	"time"

	"github.com/pmorales/wishtrack/internal/models"
)

// WishlistRepository defines the interface for wishlist item data operations.
// Lookups that match no row (including rows owned by someone else) return
// (nil, nil); errors are reserved for storage faults.
type WishlistRepository interface {
	// Create assigns the item's id and dateAdded, writes the row together
	// with its first price history entry, and returns the stored item.
	Create(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error)
	GetByID(ctx context.Context, id, ownerID string) (*models.WishlistItem, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.WishlistItem, error)
	// Update applies a partial field update. It never touches the price
	// history. An empty update behaves as a read of the current state.
	Update(ctx context.Context, id, ownerID string, upd ItemUpdate) (*models.WishlistItem, error)
	// SetPrice appends a history entry and sets the denormalized current
	// price in a single transaction.
	SetPrice(ctx context.Context, id, ownerID string, price float64) (*models.WishlistItem, error)
	// Delete removes the item and its entire price history as one unit.
	// The bool reports whether a row was actually removed.
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	ListCategories(ctx context.Context, ownerID string) ([]string, error)
}

// ItemUpdate enumerates the fields a caller may change on an existing item.
// Identity and ownership are not representable here, so they cannot be
// updated through this path. Nil fields are left untouched.
type ItemUpdate struct {
	Name          *string
	Price         *float64
	Currency      *string
	Purchased     *bool
	DatePurchased *time.Time
	// ClearDatePurchased removes date_purchased; it wins over DatePurchased.
	ClearDatePurchased bool
	Category           *string
	Notes              *string
	URL                *string
}

// Empty reports whether the update changes nothing.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Price == nil && u.Currency == nil &&
		u.Purchased == nil && u.DatePurchased == nil && !u.ClearDatePurchased &&
		u.Category == nil && u.Notes == nil && u.URL == nil
}
