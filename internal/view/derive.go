// Package view holds the pure display derivations: filtering and sorting a
// cached item collection, and mapping category labels to color buckets.
// Nothing here performs I/O or mutates its input.
package view

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pmorales/wishtrack/internal/models"
)

// SortField selects the comparison key for Derive.
type SortField string

const (
	SortByDateAdded SortField = "date_added"
	SortByPrice     SortField = "price"
	SortByName      SortField = "name"
)

// SortOrder selects ascending or descending output.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filters describes which items to retain and how to order them. A nil
// Purchased or empty Category disables that filter.
type Filters struct {
	Purchased *bool
	Category  string
	SortBy    SortField
	SortOrder SortOrder
}

var nameCollator = collate.New(language.English)

// Derive returns the display-ordered subsequence of items selected by
// filters. It never modifies the input slice; callers get a fresh slice
// sharing the underlying item pointers. Ties keep their input order.
func Derive(items []*models.WishlistItem, filters Filters) []*models.WishlistItem {
	out := make([]*models.WishlistItem, 0, len(items))
	for _, item := range items {
		if filters.Purchased != nil && item.Purchased != *filters.Purchased {
			continue
		}
		if filters.Category != "" && item.Category != filters.Category {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		cmp := compare(out[i], out[j], filters.SortBy)
		if filters.SortOrder == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

func compare(a, b *models.WishlistItem, field SortField) int {
	switch field {
	case SortByPrice:
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	case SortByName:
		return nameCollator.CompareString(a.Name, b.Name)
	default: // date added
		return a.DateAdded.Compare(b.DateAdded)
	}
}
