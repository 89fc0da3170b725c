package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pmorales/wishtrack/internal/metrics"
	"github.com/pmorales/wishtrack/internal/service"
)

// Middleware wraps a handler; the authenticator's bearer-token check is
// injected through this so tests can substitute a stub identity.
type Middleware func(http.Handler) http.Handler

// Server provides the HTTP API.
type Server struct {
	svc          *service.Service
	logger       *logrus.Logger
	mux          *http.ServeMux
	authn        Middleware
	allowOrigins string
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, authn Middleware, allowOrigins string, logger *logrus.Logger) *Server {
	s := &Server{
		svc:          svc,
		logger:       logger,
		mux:          http.NewServeMux(),
		authn:        authn,
		allowOrigins: allowOrigins,
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Liveness requires no identity.
	s.mux.Handle("GET /health", metrics.Instrument("/health", http.HandlerFunc(s.handleHealth)))

	// Everything else does.
	s.protected("GET /api/wishlist", "/api/wishlist", s.handleListItems)
	s.protected("POST /api/wishlist", "/api/wishlist", s.handleCreateItem)
	s.protected("GET /api/wishlist/{id}", "/api/wishlist/{id}", s.handleGetItem)
	s.protected("PUT /api/wishlist/{id}", "/api/wishlist/{id}", s.handleUpdateItem)
	s.protected("DELETE /api/wishlist/{id}", "/api/wishlist/{id}", s.handleDeleteItem)
	s.protected("POST /api/wishlist/{id}/price", "/api/wishlist/{id}/price", s.handleChangePrice)
	s.protected("GET /api/categories", "/api/categories", s.handleCategories)
}

func (s *Server) protected(pattern, route string, h http.HandlerFunc) {
	s.mux.Handle(pattern, metrics.Instrument(route, s.authn(h)))
}

// cors mirrors the headers the web client expects and short-circuits
// preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// respondServiceError translates a service failure: validation problems are
// client-correctable and echoed back, everything else is an opaque server
// fault.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	if service.IsValidation(err) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.WithError(err).Errorf("failed to %s", action)
	s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to %s", action))
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
