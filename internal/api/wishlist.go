package api

import (
	"net/http"
	"time"

	"github.com/pmorales/wishtrack/internal/auth"
	"github.com/pmorales/wishtrack/internal/repository"
	"github.com/pmorales/wishtrack/internal/service"
	"github.com/pmorales/wishtrack/internal/view"
)

// requireOwner reads the authenticated owner id placed by the auth
// middleware. It writes an error response and returns false when absent.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "missing identity")
		return "", false
	}
	return owner, true
}

// ---------------------------------------------------------------------------
// List / filters
// ---------------------------------------------------------------------------

func parseFilters(r *http.Request) (view.Filters, string) {
	q := r.URL.Query()
	filters := view.Filters{
		SortBy:    view.SortByDateAdded,
		SortOrder: view.SortDesc,
	}

	switch q.Get("purchased") {
	case "":
	case "true":
		t := true
		filters.Purchased = &t
	case "false":
		f := false
		filters.Purchased = &f
	default:
		return filters, "purchased must be true or false"
	}

	filters.Category = q.Get("category")

	switch sortBy := q.Get("sort_by"); sortBy {
	case "":
	case string(view.SortByDateAdded), string(view.SortByPrice), string(view.SortByName):
		filters.SortBy = view.SortField(sortBy)
	default:
		return filters, "sort_by must be one of date_added, price, name"
	}

	switch order := q.Get("sort_order"); order {
	case "":
	case string(view.SortAsc), string(view.SortDesc):
		filters.SortOrder = view.SortOrder(order)
	default:
		return filters, "sort_order must be asc or desc"
	}

	return filters, ""
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	filters, errMsg := parseFilters(r)
	if errMsg != "" {
		s.respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	items, err := s.svc.ListItems(r.Context(), owner)
	if err != nil {
		s.respondServiceError(w, err, "get wishlist items")
		return
	}

	// Derive never returns nil, so an empty wishlist encodes as [].
	s.respondJSON(w, http.StatusOK, map[string]any{"items": view.Derive(items, filters)})
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

type createItemRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Purchased     bool    `json:"purchased"`
	DatePurchased string  `json:"date_purchased"` // RFC 3339
	Category      string  `json:"category"`
	Notes         string  `json:"notes"`
	URL           string  `json:"url"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req createItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	in := service.CreateItemInput{
		Name:      req.Name,
		Price:     req.Price,
		Currency:  req.Currency,
		Purchased: req.Purchased,
		Category:  req.Category,
		Notes:     req.Notes,
		URL:       req.URL,
	}
	if req.DatePurchased != "" {
		t, err := time.Parse(time.RFC3339, req.DatePurchased)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "date_purchased must be RFC 3339 format")
			return
		}
		in.DatePurchased = &t
	}

	item, err := s.svc.CreateItem(r.Context(), owner, in)
	if err != nil {
		s.respondServiceError(w, err, "create wishlist item")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"item": item})
}

// ---------------------------------------------------------------------------
// Get / Update / Delete
// ---------------------------------------------------------------------------

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	item, err := s.svc.GetItem(r.Context(), r.PathValue("id"), owner)
	if err != nil {
		s.respondServiceError(w, err, "get wishlist item")
		return
	}
	if item == nil {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

type updateItemRequest struct {
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	Currency      *string  `json:"currency"`
	Purchased     *bool    `json:"purchased"`
	DatePurchased *string  `json:"date_purchased"` // RFC 3339; "" clears
	Category      *string  `json:"category"`
	Notes         *string  `json:"notes"`
	URL           *string  `json:"url"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	upd := repository.ItemUpdate{
		Name:      req.Name,
		Price:     req.Price,
		Currency:  req.Currency,
		Purchased: req.Purchased,
		Category:  req.Category,
		Notes:     req.Notes,
		URL:       req.URL,
	}
	if req.DatePurchased != nil {
		if *req.DatePurchased == "" {
			upd.ClearDatePurchased = true
		} else {
			t, err := time.Parse(time.RFC3339, *req.DatePurchased)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "date_purchased must be RFC 3339 format")
				return
			}
			upd.DatePurchased = &t
		}
	}

	item, err := s.svc.UpdateItem(r.Context(), r.PathValue("id"), owner, upd)
	if err != nil {
		s.respondServiceError(w, err, "update wishlist item")
		return
	}
	if item == nil {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	// Deliberately idempotent: an item that is already gone (or was never
	// this owner's) reports success, since the end state is identical.
	if err := s.svc.DeleteItem(r.Context(), r.PathValue("id"), owner); err != nil {
		s.respondServiceError(w, err, "delete wishlist item")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ---------------------------------------------------------------------------
// Price history
// ---------------------------------------------------------------------------

type changePriceRequest struct {
	Price float64 `json:"price"`
}

func (s *Server) handleChangePrice(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req changePriceRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.ChangePrice(r.Context(), r.PathValue("id"), owner, req.Price)
	if err != nil {
		s.respondServiceError(w, err, "record price change")
		return
	}
	if item == nil {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

type categoryResponse struct {
	Name  string     `json:"name"`
	Color view.Color `json:"color"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	names, err := s.svc.Categories(r.Context(), owner)
	if err != nil {
		s.respondServiceError(w, err, "get categories")
		return
	}

	categories := make([]categoryResponse, 0, len(names))
	for _, name := range names {
		categories = append(categories, categoryResponse{Name: name, Color: view.ColorFor(name)})
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
