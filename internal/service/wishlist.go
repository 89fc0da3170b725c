package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/pmorales/wishtrack/internal/models"
	"github.com/pmorales/wishtrack/internal/repository"
)

// CreateItemInput carries the caller-supplied fields for a new item.
// Everything else (id, owner, dateAdded, the initial history entry) is
// assigned by the store.
type CreateItemInput struct {
	Name          string
	Price         float64
	Currency      string
	Purchased     bool
	DatePurchased *time.Time
	Category      string
	Notes         string
	URL           string
}

// CreateItem validates the draft and persists it with its first price entry.
func (s *Service) CreateItem(ctx context.Context, ownerID string, in CreateItemInput) (*models.WishlistItem, error) {
	problems := &multierror.Error{}
	if strings.TrimSpace(in.Name) == "" {
		problems = multierror.Append(problems, errors.New("name must not be empty"))
	}
	if err := checkPrice(in.Price); err != nil {
		problems = multierror.Append(problems, err)
	}
	if err := checkURL(in.URL); err != nil {
		problems = multierror.Append(problems, err)
	}
	if err := validationErr(problems); err != nil {
		return nil, err
	}

	item := &models.WishlistItem{
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(in.Name),
		Price:         in.Price,
		Currency:      in.Currency,
		Purchased:     in.Purchased,
		DatePurchased: in.DatePurchased,
		Category:      strings.TrimSpace(in.Category),
		Notes:         in.Notes,
		URL:           strings.TrimSpace(in.URL),
	}
	normalizePurchase(&item.Purchased, &item.DatePurchased)

	created, err := s.Items.Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to create wishlist item: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"item_id": created.ID,
		"owner":   ownerID,
	}).Info("Created wishlist item")
	return created, nil
}

// GetItem returns the item with its full history, or (nil, nil) when no row
// matches both id and owner.
func (s *Service) GetItem(ctx context.Context, id, ownerID string) (*models.WishlistItem, error) {
	item, err := s.Items.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns every item owned by ownerID, newest first.
func (s *Service) ListItems(ctx context.Context, ownerID string) ([]*models.WishlistItem, error) {
	items, err := s.Items.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist items: %w", err)
	}
	return items, nil
}

// UpdateItem applies a partial update after validating the supplied fields.
// The purchase pairing is normalized here: an item becoming purchased
// without an explicit timestamp gets the server clock, and an item becoming
// unpurchased always has its purchase date cleared, whatever the caller sent.
func (s *Service) UpdateItem(ctx context.Context, id, ownerID string, upd repository.ItemUpdate) (*models.WishlistItem, error) {
	problems := &multierror.Error{}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		problems = multierror.Append(problems, errors.New("name must not be empty"))
	}
	if upd.Price != nil {
		if err := checkPrice(*upd.Price); err != nil {
			problems = multierror.Append(problems, err)
		}
	}
	if upd.URL != nil && *upd.URL != "" {
		if err := checkURL(*upd.URL); err != nil {
			problems = multierror.Append(problems, err)
		}
	}
	if err := validationErr(problems); err != nil {
		return nil, err
	}

	if upd.Purchased != nil {
		if *upd.Purchased {
			if upd.DatePurchased == nil {
				now := time.Now().UTC()
				upd.DatePurchased = &now
			}
			upd.ClearDatePurchased = false
		} else {
			upd.DatePurchased = nil
			upd.ClearDatePurchased = true
		}
	}

	item, err := s.Items.Update(ctx, id, ownerID, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to update wishlist item %s: %w", id, err)
	}
	return item, nil
}

// ChangePrice records a new price observation for the item. The history
// append and the current-price refresh happen in one transaction, so the
// returned item always satisfies price == latest history entry.
func (s *Service) ChangePrice(ctx context.Context, id, ownerID string, price float64) (*models.WishlistItem, error) {
	problems := &multierror.Error{}
	if err := checkPrice(price); err != nil {
		problems = multierror.Append(problems, err)
	}
	if err := validationErr(problems); err != nil {
		return nil, err
	}

	item, err := s.Items.SetPrice(ctx, id, ownerID, price)
	if err != nil {
		return nil, fmt.Errorf("failed to change price of item %s: %w", id, err)
	}
	if item != nil {
		s.logger.WithFields(logrus.Fields{
			"item_id": id,
			"price":   price,
		}).Info("Recorded price change")
	}
	return item, nil
}

// DeleteItem removes the item and its history. It is idempotent from the
// caller's perspective: deleting a missing or not-owned item is not an
// error, because the observable end state is the same either way.
func (s *Service) DeleteItem(ctx context.Context, id, ownerID string) error {
	removed, err := s.Items.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item %s: %w", id, err)
	}
	if !removed {
		s.logger.WithField("item_id", id).Debug("Delete matched no row, treating as success")
	}
	return nil
}

// Categories returns the distinct non-empty category labels for the owner,
// alphabetically ordered.
func (s *Service) Categories(ctx context.Context, ownerID string) ([]string, error) {
	categories, err := s.Items.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return errors.New("price must be a finite number")
	}
	if price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

func checkURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("url %q must be a valid absolute URL", raw)
	}
	return nil
}

// normalizePurchase enforces the pairing between the purchased flag and its
// timestamp on freshly created items.
func normalizePurchase(purchased *bool, datePurchased **time.Time) {
	if *purchased {
		if *datePurchased == nil {
			now := time.Now().UTC()
			*datePurchased = &now
		}
		return
	}
	*datePurchased = nil
}
