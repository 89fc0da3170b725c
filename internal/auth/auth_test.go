package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://id.example.com/"
	testAudience = "https://api.example.com"
	testKid      = "test-key-1"
)

type tokenIssuer struct {
	key  *rsa.PrivateKey
	jwks *httptest.Server
}

func newTokenIssuer(t *testing.T) *tokenIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKid,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(ts.Close)

	return &tokenIssuer{key: key, jwks: ts}
}

// authenticator builds an Authenticator whose key cache points at the test
// JWKS endpoint.
func (ti *tokenIssuer) authenticator() *Authenticator {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Authenticator{
		issuer:   testIssuer,
		audience: testAudience,
		keys:     newKeyCache(ti.jwks.URL),
		logger:   l,
	}
}

func (ti *tokenIssuer) sign(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(ti.key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss": testIssuer,
		"aud": testAudience,
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	sub, err := a.Authenticate(ti.sign(t, validClaims(), testKid))
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := a.Authenticate(ti.sign(t, claims, testKid))
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestAuthenticateWrongIssuer(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	claims := validClaims()
	claims["iss"] = "https://evil.example.com/"

	_, err := a.Authenticate(ti.sign(t, claims, testKid))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issuer")
}

func TestAuthenticateWrongAudience(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	claims := validClaims()
	claims["aud"] = "https://other.example.com"

	_, err := a.Authenticate(ti.sign(t, claims, testKid))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audience")
}

func TestAuthenticateMissingSubject(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	claims := validClaims()
	delete(claims, "sub")

	_, err := a.Authenticate(ti.sign(t, claims, testKid))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestAuthenticateForgedSignature(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	// Signed by a different key but claiming the published kid: a token
	// whose claims alone look perfect must still be rejected.
	forger, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	token.Header["kid"] = testKid
	forged, err := token.SignedString(forger)
	require.NoError(t, err)

	_, err = a.Authenticate(forged)
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestAuthenticateUnsignedToken(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Authenticate(unsigned)
	require.Error(t, err)
}

func TestAuthenticateUnknownKid(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	_, err := a.Authenticate(ti.sign(t, validClaims(), "rotated-away"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown signing key")
}

func TestAuthenticateGarbage(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	_, err := a.Authenticate("not.a.token")
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestMiddlewareInjectsOwner(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	var gotOwner string
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, _ = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set("Authorization", "Bearer "+ti.sign(t, validClaims(), testKid))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", gotOwner)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	called := false
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wishlist", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	ti := newTokenIssuer(t)
	a := ti.authenticator()

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestOwnerFromContextEmpty(t *testing.T) {
	_, ok := OwnerFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestAuthenticationErrorMessage(t *testing.T) {
	err := &AuthenticationError{Reason: "expired"}
	assert.Equal(t, "authentication failed: expired", err.Error())
}
