// Package auth supplies bearer tokens for backend requests, either as a
// fixed token or by signing in with credentials and caching the issued
// token until its JWT expiry.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tablab/semtab/pkg/errors"
)

// Source supplies a bearer token for a backend request. Implementations
// may refresh lazily; callers treat every call as potentially blocking.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a Source wrapping a fixed, caller-supplied token.
type StaticToken string

// Token implements Source.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.ErrTokenRequired
	}
	return string(t), nil
}

// defaultTokenTTL applies when the issued token carries no usable expiry
// claim.
const defaultTokenTTL = time.Hour

// TokenManager signs in with username/password and caches the issued
// token until it expires. Safe for concurrent use.
type TokenManager struct {
	http      *http.Client
	signinURL string
	username  string
	password  string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenManager builds a TokenManager for the backend at baseURL.
// httpClient may be nil, in which case a default client is used.
func NewTokenManager(baseURL, username, password string, httpClient *http.Client) (*TokenManager, error) {
	signin, err := url.JoinPath(baseURL, "auth", "signin")
	if err != nil {
		return nil, &errors.ValidationError{Field: "base_url", Value: baseURL, Message: err.Error()}
	}
	if username == "" || password == "" {
		return nil, &errors.ValidationError{Field: "credentials", Message: "username and password are required"}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenManager{
		http:      httpClient,
		signinURL: signin,
		username:  username,
		password:  password,
	}, nil
}

// Token returns the cached token, refreshing it first when missing or
// expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiry) {
		return m.token, nil
	}
	if err := m.refresh(ctx); err != nil {
		return "", err
	}
	return m.token, nil
}

// Invalidate drops the cached token so the next call signs in again.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = time.Time{}
}

func (m *TokenManager) refresh(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": m.username,
		"password": m.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.signinURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return &errors.AuthenticationError{
			Method:  "credentials",
			Message: "sign-in request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "sign-in response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &errors.AuthenticationError{
			Method:  "credentials",
			Message: fmt.Sprintf("sign-in rejected with status %d", resp.StatusCode),
			Err:     errors.NewAPIError("auth", resp.StatusCode, string(raw)),
		}
	}

	var signin struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &signin); err != nil {
		return errors.WrapParse("json", "sign-in response", err)
	}
	if signin.Token == "" {
		return &errors.AuthenticationError{
			Method:  "credentials",
			Message: "sign-in response carries no token",
		}
	}

	m.token = signin.Token
	m.expiry = tokenExpiry(signin.Token, time.Now())
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// token is the backend's own and only its lifetime matters here. Tokens
// without a readable claim get the default TTL.
func tokenExpiry(token string, now time.Time) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return now.Add(defaultTokenTTL)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return now.Add(defaultTokenTTL)
	}
	return exp.Time
}
