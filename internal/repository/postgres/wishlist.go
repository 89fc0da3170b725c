package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmorales/wishtrack/internal/models"
	"github.com/pmorales/wishtrack/internal/repository"
)

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new wishlist repository backed by postgres.
func NewWishlistRepository(db *sql.DB) repository.WishlistRepository {
	return &wishlistRepository{db: db}
}

func storageErr(op string, err error) error {
	return &repository.StorageError{Op: op, Err: err}
}

const itemColumns = `id, owner_id, name, price, currency, date_added, purchased,
		date_purchased, category, notes, url`

func scanItem(row interface{ Scan(...any) error }) (*models.WishlistItem, error) {
	item := &models.WishlistItem{}
	var datePurchased sql.NullTime
	var category, notes, url sql.NullString
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Name,
		&item.Price,
		&item.Currency,
		&item.DateAdded,
		&item.Purchased,
		&datePurchased,
		&category,
		&notes,
		&url,
	)
	if err != nil {
		return nil, err
	}
	if datePurchased.Valid {
		t := datePurchased.Time
		item.DatePurchased = &t
	}
	item.Category = category.String
	item.Notes = notes.String
	item.URL = url.String
	return item, nil
}

func (r *wishlistRepository) Create(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error) {
	item.ID = uuid.NewString()
	item.DateAdded = time.Now().UTC()
	if item.Currency == "" {
		item.Currency = models.DefaultCurrency
	}

	// The row insert and the first history entry must not be observably
	// split, so both happen inside one transaction.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin create", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wishlist_items
			(id, owner_id, name, price, currency, date_added, purchased,
			 date_purchased, category, notes, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		item.ID,
		item.OwnerID,
		item.Name,
		item.Price,
		item.Currency,
		item.DateAdded,
		item.Purchased,
		item.DatePurchased,
		nullable(item.Category),
		nullable(item.Notes),
		nullable(item.URL),
	)
	if err != nil {
		return nil, storageErr("insert wishlist item", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO price_history (item_id, price, date)
		VALUES ($1, $2, $3)`,
		item.ID, item.Price, item.DateAdded,
	); err != nil {
		return nil, storageErr("insert initial price entry", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit create", err)
	}

	return r.GetByID(ctx, item.ID, item.OwnerID)
}

func (r *wishlistRepository) GetByID(ctx context.Context, id, ownerID string) (*models.WishlistItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM wishlist_items
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)

	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			// Cross-owner lookups land here as well, so a caller cannot
			// distinguish "not mine" from "does not exist".
			return nil, nil
		}
		return nil, storageErr("get wishlist item", err)
	}

	if item.PriceHistory, err = r.priceHistory(ctx, id); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *wishlistRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM wishlist_items
		WHERE owner_id = $1
		ORDER BY date_added DESC`,
		ownerID,
	)
	if err != nil {
		return nil, storageErr("list wishlist items", err)
	}
	defer rows.Close()

	var items []*models.WishlistItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageErr("scan wishlist item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate wishlist items", err)
	}

	for _, item := range items {
		if item.PriceHistory, err = r.priceHistory(ctx, item.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *wishlistRepository) Update(ctx context.Context, id, ownerID string, upd repository.ItemUpdate) (*models.WishlistItem, error) {
	if upd.Empty() {
		return r.GetByID(ctx, id, ownerID)
	}

	setParts := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Currency != nil {
		add("currency", *upd.Currency)
	}
	if upd.Purchased != nil {
		add("purchased", *upd.Purchased)
	}
	if upd.ClearDatePurchased {
		add("date_purchased", nil)
	} else if upd.DatePurchased != nil {
		add("date_purchased", *upd.DatePurchased)
	}
	if upd.Category != nil {
		add("category", nullable(*upd.Category))
	}
	if upd.Notes != nil {
		add("notes", nullable(*upd.Notes))
	}
	if upd.URL != nil {
		add("url", nullable(*upd.URL))
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(`
		UPDATE wishlist_items
		SET %s
		WHERE id = $%d AND owner_id = $%d`,
		strings.Join(setParts, ", "), len(args)-1, len(args),
	)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("update wishlist item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, storageErr("update wishlist item rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id, ownerID)
}

func (r *wishlistRepository) SetPrice(ctx context.Context, id, ownerID string, price float64) (*models.WishlistItem, error) {
	// Append the history entry and refresh the denormalized current price
	// as one atomic unit, so the two can never be observed out of sync.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin set price", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE wishlist_items
		SET price = $1
		WHERE id = $2 AND owner_id = $3`,
		price, id, ownerID,
	)
	if err != nil {
		return nil, storageErr("update current price", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, storageErr("update current price rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO price_history (item_id, price, date)
		VALUES ($1, $2, $3)`,
		id, price, time.Now().UTC(),
	); err != nil {
		return nil, storageErr("insert price entry", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit set price", err)
	}

	return r.GetByID(ctx, id, ownerID)
}

func (r *wishlistRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr("begin delete", err)
	}
	defer tx.Rollback()

	// History rows reference the item, so they go first. Both deletes
	// commit together; a failure partway leaves everything in place.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM price_history
		WHERE item_id IN (
			SELECT id FROM wishlist_items WHERE id = $1 AND owner_id = $2
		)`,
		id, ownerID,
	); err != nil {
		return false, storageErr("delete price history", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, storageErr("delete wishlist item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete wishlist item rows affected", err)
	}

	if err := tx.Commit(); err != nil {
		return false, storageErr("commit delete", err)
	}
	return affected > 0, nil
}

func (r *wishlistRepository) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM wishlist_items
		WHERE owner_id = $1 AND category IS NOT NULL AND category != ''
		ORDER BY category`,
		ownerID,
	)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, storageErr("scan category", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate categories", err)
	}
	return categories, nil
}

func (r *wishlistRepository) priceHistory(ctx context.Context, itemID string) ([]models.PriceEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT price, date
		FROM price_history
		WHERE item_id = $1
		ORDER BY date ASC, id ASC`,
		itemID,
	)
	if err != nil {
		return nil, storageErr("get price history", err)
	}
	defer rows.Close()

	var history []models.PriceEntry
	for rows.Next() {
		var entry models.PriceEntry
		if err := rows.Scan(&entry.Price, &entry.Date); err != nil {
			return nil, storageErr("scan price entry", err)
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate price history", err)
	}
	return history, nil
}

// nullable maps the empty string to NULL so optional text columns stay NULL
// instead of accumulating empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
