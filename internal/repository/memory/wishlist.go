// Package memory provides an in-memory WishlistRepository with the same
// observable semantics as the postgres implementation. It backs tests and
// local development without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pmorales/wishtrack/internal/models"
	"github.com/pmorales/wishtrack/internal/repository"
)

type wishlistRepository struct {
	mu    sync.Mutex
	items map[string]*models.WishlistItem
	now   func() time.Time
}

// NewWishlistRepository creates an empty in-memory repository.
func NewWishlistRepository() repository.WishlistRepository {
	return &wishlistRepository{
		items: make(map[string]*models.WishlistItem),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// clone keeps callers from mutating stored state through returned pointers.
func clone(item *models.WishlistItem) *models.WishlistItem {
	out := *item
	if item.DatePurchased != nil {
		t := *item.DatePurchased
		out.DatePurchased = &t
	}
	out.PriceHistory = append([]models.PriceEntry(nil), item.PriceHistory...)
	return &out
}

func (r *wishlistRepository) Create(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := clone(item)
	stored.ID = uuid.NewString()
	stored.DateAdded = r.now()
	if stored.Currency == "" {
		stored.Currency = models.DefaultCurrency
	}
	stored.PriceHistory = []models.PriceEntry{{Price: stored.Price, Date: stored.DateAdded}}

	r.items[stored.ID] = stored
	return clone(stored), nil
}

func (r *wishlistRepository) GetByID(ctx context.Context, id, ownerID string) (*models.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, nil
	}
	return clone(item), nil
}

func (r *wishlistRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*models.WishlistItem
	for _, item := range r.items {
		if item.OwnerID == ownerID {
			items = append(items, clone(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DateAdded.After(items[j].DateAdded)
	})
	return items, nil
}

func (r *wishlistRepository) Update(ctx context.Context, id, ownerID string, upd repository.ItemUpdate) (*models.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, nil
	}

	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.Price != nil {
		item.Price = *upd.Price
	}
	if upd.Currency != nil {
		item.Currency = *upd.Currency
	}
	if upd.Purchased != nil {
		item.Purchased = *upd.Purchased
	}
	if upd.ClearDatePurchased {
		item.DatePurchased = nil
	} else if upd.DatePurchased != nil {
		t := *upd.DatePurchased
		item.DatePurchased = &t
	}
	if upd.Category != nil {
		item.Category = *upd.Category
	}
	if upd.Notes != nil {
		item.Notes = *upd.Notes
	}
	if upd.URL != nil {
		item.URL = *upd.URL
	}

	return clone(item), nil
}

func (r *wishlistRepository) SetPrice(ctx context.Context, id, ownerID string, price float64) (*models.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, nil
	}

	item.PriceHistory = append(item.PriceHistory, models.PriceEntry{Price: price, Date: r.now()})
	item.Price = price
	return clone(item), nil
}

func (r *wishlistRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *wishlistRepository) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	for _, item := range r.items {
		if item.OwnerID == ownerID && item.Category != "" {
			seen[item.Category] = true
		}
	}

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories, nil
}
