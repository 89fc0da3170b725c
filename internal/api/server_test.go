package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmorales/wishtrack/internal/auth"
	"github.com/pmorales/wishtrack/internal/repository/memory"
	"github.com/pmorales/wishtrack/internal/service"
)

// stubAuthn injects a fixed owner unless the request carries no
// Authorization header at all, mimicking the real middleware's contract.
func stubAuthn(owner string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"missing bearer token"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), owner)))
		})
	}
}

func newTestServer(t *testing.T, owner string) *httptest.Server {
	t.Helper()

	l := logrus.New()
	l.SetOutput(io.Discard)
	svc := service.New(nil, l, memory.NewWishlistRepository())
	srv := NewServer(svc, stubAuthn(owner), "*", l)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func createItem(t *testing.T, ts *httptest.Server, body string) map[string]any {
	t.Helper()

	resp, envelope := doRequest(t, ts, http.MethodPost, "/api/wishlist", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var item map[string]any
	require.NoError(t, json.Unmarshal(envelope["item"], &item))
	return item
}

func TestHealthNeedsNoToken(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, err := ts.Client().Get(ts.URL + "/api/wishlist")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateItemResponse(t *testing.T) {
	ts := newTestServer(t, "user-1")

	item := createItem(t, ts, `{"name":"Drone","price":200,"category":"Tech"}`)

	assert.NotEmpty(t, item["id"])
	assert.Equal(t, "Drone", item["name"])
	assert.Equal(t, 200.0, item["price"])
	assert.Equal(t, "USD", item["currency"])
	assert.Equal(t, "Tech", item["category"])

	history, ok := item["price_history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)

	// The owner id never leaks into the payload.
	_, present := item["owner_id"]
	assert.False(t, present)
}

func TestCreateItemValidationError(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, envelope := doRequest(t, ts, http.MethodPost, "/api/wishlist", `{"name":"","price":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(envelope["error"]), "invalid input")
}

func TestCreateItemMalformedJSON(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, envelope := doRequest(t, ts, http.MethodPost, "/api/wishlist", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(envelope["error"]), "invalid JSON")
}

func TestGetItemRoundTrip(t *testing.T) {
	ts := newTestServer(t, "user-1")

	created := createItem(t, ts, `{"name":"Drone","price":200}`)
	id := created["id"].(string)

	resp, envelope := doRequest(t, ts, http.MethodGet, "/api/wishlist/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item map[string]any
	require.NoError(t, json.Unmarshal(envelope["item"], &item))
	assert.Equal(t, "Drone", item["name"])
}

func TestGetItemNotFound(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, envelope := doRequest(t, ts, http.MethodGet, "/api/wishlist/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(envelope["error"]), "item not found")
}

func TestUpdateItemPartial(t *testing.T) {
	ts := newTestServer(t, "user-1")

	created := createItem(t, ts, `{"name":"Drone","price":200,"notes":"keep me"}`)
	id := created["id"].(string)

	resp, envelope := doRequest(t, ts, http.MethodPut, "/api/wishlist/"+id, `{"name":"Quadcopter"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item map[string]any
	require.NoError(t, json.Unmarshal(envelope["item"], &item))
	assert.Equal(t, "Quadcopter", item["name"])
	// Untouched fields survive a partial update.
	assert.Equal(t, "keep me", item["notes"])
	assert.Equal(t, 200.0, item["price"])
}

func TestUpdateItemPurchaseAndClear(t *testing.T) {
	ts := newTestServer(t, "user-1")

	created := createItem(t, ts, `{"name":"Drone","price":200}`)
	id := created["id"].(string)

	resp, envelope := doRequest(t, ts, http.MethodPut, "/api/wishlist/"+id, `{"purchased":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item map[string]any
	require.NoError(t, json.Unmarshal(envelope["item"], &item))
	assert.Equal(t, true, item["purchased"])
	assert.NotNil(t, item["date_purchased"])

	resp, envelope = doRequest(t, ts, http.MethodPut, "/api/wishlist/"+id, `{"purchased":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// Unmarshal into a fresh map: decoding into a non-nil map merges keys,
	// which would keep the stale date_purchased from the first response.
	item = nil
	require.NoError(t, json.Unmarshal(envelope["item"], &item))
	assert.Equal(t, false, item["purchased"])
	assert.Nil(t, item["date_purchased"])
}

func TestChangePriceAppendsHistory(t *testing.T) {
	ts := newTestServer(t, "user-1")

	created := createItem(t, ts, `{"name":"Drone","price":200}`)
	id := created["id"].(string)

	resp, envelope := doRequest(t, ts, http.MethodPost, "/api/wishlist/"+id+"/price", `{"price":150}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item map[string]any
	require.NoError(t, json.Unmarshal(envelope["item"], &item))
	assert.Equal(t, 150.0, item["price"])

	history, ok := item["price_history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 2)
	last := history[1].(map[string]any)
	assert.Equal(t, 150.0, last["price"])
}

func TestChangePriceUnknownItem(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/wishlist/no-such-id/price", `{"price":150}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteItemAlwaysSucceeds(t *testing.T) {
	ts := newTestServer(t, "user-1")

	created := createItem(t, ts, `{"name":"Drone","price":200}`)
	id := created["id"].(string)

	resp, envelope := doRequest(t, ts, http.MethodDelete, "/api/wishlist/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "true", string(envelope["success"]))

	// Deleting again, or deleting something that never existed, still
	// reports success.
	resp, envelope = doRequest(t, ts, http.MethodDelete, "/api/wishlist/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "true", string(envelope["success"]))
}

func TestListItemsFiltersAndSorts(t *testing.T) {
	ts := newTestServer(t, "user-1")

	createItem(t, ts, `{"name":"Camera","price":10,"category":"A"}`)
	createItem(t, ts, `{"name":"Binoculars","price":5,"category":"B","purchased":true}`)
	createItem(t, ts, `{"name":"Anvil","price":7,"category":"A"}`)

	resp, envelope := doRequest(t, ts, http.MethodGet, "/api/wishlist?sort_by=price&sort_order=asc", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(envelope["items"], &items))
	require.Len(t, items, 3)
	assert.Equal(t, 5.0, items[0]["price"])
	assert.Equal(t, 10.0, items[2]["price"])

	resp, envelope = doRequest(t, ts, http.MethodGet, "/api/wishlist?category=A&purchased=false", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope["items"], &items))
	assert.Len(t, items, 2)
}

func TestListItemsBadSortField(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, envelope := doRequest(t, ts, http.MethodGet, "/api/wishlist?sort_by=wrong", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(envelope["error"]), "sort_by")
}

func TestListItemsEmptyIsArray(t *testing.T) {
	ts := newTestServer(t, "user-1")

	resp, envelope := doRequest(t, ts, http.MethodGet, "/api/wishlist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(envelope["items"]))
}

func TestCategoriesCarryColors(t *testing.T) {
	ts := newTestServer(t, "user-1")

	createItem(t, ts, `{"name":"Drone","price":200,"category":"Tech"}`)
	createItem(t, ts, `{"name":"Novel","price":15,"category":"Books"}`)

	resp, envelope := doRequest(t, ts, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var categories []map[string]any
	require.NoError(t, json.Unmarshal(envelope["categories"], &categories))
	require.Len(t, categories, 2)
	assert.Equal(t, "Books", categories[0]["name"])
	assert.Equal(t, "Tech", categories[1]["name"])
	for _, category := range categories {
		color, ok := category["color"].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, color["name"])
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, "user-1")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/wishlist", nil)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}
