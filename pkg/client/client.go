// Package client is a Go client for the wishtrack API. It keeps a transient
// mirror of server state: every mutation replaces the affected cached item
// with exactly what the server returned, and the cache is never treated as
// authoritative for price or history.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pmorales/wishtrack/internal/models"
)

// Client talks to one wishtrack server on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
	cache map[string]*models.WishlistItem
}

// New creates a Client for the given base URL (no trailing slash).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   make(map[string]*models.WishlistItem),
	}
}

// SetToken installs the bearer credential used on every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

type itemEnvelope struct {
	Item *models.WishlistItem `json:"item"`
}

type itemsEnvelope struct {
	Items []*models.WishlistItem `json:"items"`
}

// NewItem is the payload for Add.
type NewItem struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency,omitempty"`
	Purchased bool    `json:"purchased,omitempty"`
	Category  string  `json:"category,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// ItemPatch is a partial update; nil fields are left unchanged.
type ItemPatch struct {
	Name          *string  `json:"name,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
	Purchased     *bool    `json:"purchased,omitempty"`
	DatePurchased *string  `json:"date_purchased,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	URL           *string  `json:"url,omitempty"`
}

// Load refreshes the whole mirror from the server and returns the items,
// newest first. On failure the existing cache is left as it was.
func (c *Client) Load(ctx context.Context) ([]*models.WishlistItem, error) {
	var env itemsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/wishlist", nil, &env); err != nil {
		return nil, err
	}

	cache := make(map[string]*models.WishlistItem, len(env.Items))
	for _, item := range env.Items {
		cache[item.ID] = item
	}
	c.mu.Lock()
	c.cache = cache
	c.mu.Unlock()

	return env.Items, nil
}

// Items returns a snapshot of the cached mirror, newest first.
func (c *Client) Items() []*models.WishlistItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]*models.WishlistItem, 0, len(c.cache))
	for _, item := range c.cache {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DateAdded.After(items[j].DateAdded)
	})
	return items
}

// Add creates an item and mirrors the server's returned copy, including the
// store-assigned id, dateAdded and initial price history.
func (c *Client) Add(ctx context.Context, in NewItem) (*models.WishlistItem, error) {
	var env itemEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/wishlist", in, &env); err != nil {
		return nil, err
	}
	c.put(env.Item)
	return env.Item, nil
}

// Update applies a partial update and mirrors the result.
func (c *Client) Update(ctx context.Context, id string, patch ItemPatch) (*models.WishlistItem, error) {
	var env itemEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/wishlist/"+id, patch, &env); err != nil {
		return nil, err
	}
	c.put(env.Item)
	return env.Item, nil
}

// TogglePurchased flips the cached item's purchased state, submitting the
// flag and its paired timestamp together in a single update.
func (c *Client) TogglePurchased(ctx context.Context, id string) (*models.WishlistItem, error) {
	c.mu.RLock()
	item, ok := c.cache[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown item %s", id)
	}

	target := !item.Purchased
	patch := ItemPatch{Purchased: &target}
	if target {
		now := time.Now().UTC().Format(time.RFC3339)
		patch.DatePurchased = &now
	} else {
		empty := ""
		patch.DatePurchased = &empty
	}
	return c.Update(ctx, id, patch)
}

// SetPrice records a price change. The server appends the history entry and
// refreshes the current price in one operation; the mirror takes whatever
// comes back and never computes either side locally.
func (c *Client) SetPrice(ctx context.Context, id string, price float64) (*models.WishlistItem, error) {
	var env itemEnvelope
	body := map[string]float64{"price": price}
	if err := c.do(ctx, http.MethodPost, "/api/wishlist/"+id+"/price", body, &env); err != nil {
		return nil, err
	}
	c.put(env.Item)
	return env.Item, nil
}

// Delete removes the item server-side, then drops it from the mirror.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/wishlist/"+id, nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.cache, id)
	c.mu.Unlock()
	return nil
}

// Category pairs a label with its display color bucket.
type Category struct {
	Name  string `json:"name"`
	Color struct {
		Name   string `json:"name"`
		Bucket int    `json:"bucket"`
	} `json:"color"`
}

// Categories fetches the distinct category labels in use.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var env struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &env); err != nil {
		return nil, err
	}
	return env.Categories, nil
}

func (c *Client) put(item *models.WishlistItem) {
	if item == nil {
		return
	}
	c.mu.Lock()
	c.cache[item.ID] = item
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
