// Package auth validates bearer credentials issued by the external identity
// provider. Tokens are verified cryptographically against the provider's
// published keys, then checked for issuer, audience and expiry; only then is
// the subject claim trusted as the owner id.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// ownerKey carries the authenticated subject through the request context.
var ownerKey contextKey

// AuthenticationError reports a rejected credential. The reason is logged
// server-side; clients only ever see a generic 401.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Authenticator validates bearer tokens for one issuer/audience pair.
type Authenticator struct {
	issuer   string
	audience string
	keys     *keyCache
	logger   *logrus.Logger
}

// New creates an Authenticator for the given provider domain and audience.
// Keys are fetched lazily from https://<domain>/.well-known/jwks.json.
func New(domain, audience string, logger *logrus.Logger) *Authenticator {
	return &Authenticator{
		issuer:   fmt.Sprintf("https://%s/", domain),
		audience: audience,
		keys:     newKeyCache(fmt.Sprintf("https://%s/.well-known/jwks.json", domain)),
		logger:   logger,
	}
}

// Authenticate validates the raw compact token and returns the subject.
func (a *Authenticator) Authenticate(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return a.keys.Key(kid)
	})
	if err != nil {
		return "", &AuthenticationError{Reason: err.Error()}
	}
	if !token.Valid {
		return "", &AuthenticationError{Reason: "token is not valid"}
	}

	if !claims.VerifyIssuer(a.issuer, true) {
		return "", &AuthenticationError{Reason: "issuer mismatch"}
	}
	if !claims.VerifyAudience(a.audience, true) {
		return "", &AuthenticationError{Reason: "audience mismatch"}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", &AuthenticationError{Reason: "token has no subject"}
	}
	return sub, nil
}

// Middleware rejects requests without a valid bearer token and injects the
// authenticated owner id into the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			a.unauthorized(w, "missing bearer token")
			return
		}

		sub, err := a.Authenticate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.logger.WithError(err).Debug("rejected credential")
			a.unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), sub)))
	})
}

func (a *Authenticator) unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

// WithOwner returns a context carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerFromContext extracts the authenticated owner id placed by Middleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey).(string)
	return owner, ok && owner != ""
}
