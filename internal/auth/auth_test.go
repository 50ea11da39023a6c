package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablab/semtab/pkg/errors"
)

// unsignedJWT builds a syntactically valid JWT with the given exp claim.
func unsignedJWT(t *testing.T, exp int64) string {
	t.Helper()
	encode := func(v any) string {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := encode(map[string]string{"alg": "none", "typ": "JWT"})
	claims := encode(map[string]any{"exp": exp, "sub": "tester"})
	return fmt.Sprintf("%s.%s.", header, claims)
}

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = StaticToken("").Token(context.Background())
	assert.ErrorIs(t, err, errors.ErrTokenRequired)
}

func TestTokenManagerSignsInOnceUntilExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/auth/signin", r.URL.Path)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice", creds["username"])
		_ = json.NewEncoder(w).Encode(map[string]string{"token": unsignedJWT(t, exp)})
	}))
	defer srv.Close()

	m, err := NewTokenManager(srv.URL, "alice", "secret", srv.Client())
	require.NoError(t, err)

	first, err := m.Token(context.Background())
	require.NoError(t, err)
	second, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "token must be cached until expiry")

	m.Invalidate()
	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTokenManagerExpiredTokenRefreshes(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		// exp in the past forces a refresh on every call.
		_ = json.NewEncoder(w).Encode(map[string]string{"token": unsignedJWT(t, time.Now().Add(-time.Minute).Unix())})
	}))
	defer srv.Close()

	m, err := NewTokenManager(srv.URL, "alice", "secret", srv.Client())
	require.NoError(t, err)

	_, err = m.Token(context.Background())
	require.NoError(t, err)
	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTokenManagerRejectedSignin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m, err := NewTokenManager(srv.URL, "alice", "wrong", srv.Client())
	require.NoError(t, err)

	_, err = m.Token(context.Background())
	require.Error(t, err)
	var authErr *errors.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestTokenManagerOpaqueTokenGetsDefaultTTL(t *testing.T) {
	now := time.Now()
	expiry := tokenExpiry("not-a-jwt", now)
	assert.Equal(t, now.Add(defaultTokenTTL), expiry)
}

func TestNewTokenManagerValidation(t *testing.T) {
	_, err := NewTokenManager("http://example.com", "", "pw", nil)
	assert.True(t, errors.IsValidation(err))
}
