package semtab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/tablab/semtab/internal/auth"
	"github.com/tablab/semtab/internal/transport"
	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/logging"
)

// Client talks to a semantic annotation backend. All remote calls go
// through an authenticated transport; composition of backend responses
// into table documents happens locally.
type Client struct {
	api    *transport.Client
	tokens *auth.TokenManager // nil when a static token is configured
	logger *zerolog.Logger
}

// New creates a Client with the given options. WithBaseURL is required,
// along with either WithToken or WithCredentials.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if cfg.baseURL == "" {
		return nil, errors.NewValidationError("baseURL", "", "base URL is required")
	}
	apiURL, err := url.JoinPath(cfg.baseURL, "api")
	if err != nil {
		return nil, errors.NewValidationError("baseURL", cfg.baseURL, err.Error())
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.httpTimeout}
	}

	var (
		source auth.Source
		tokens *auth.TokenManager
	)
	switch {
	case cfg.token != "":
		source = auth.StaticToken(cfg.token)
	case cfg.username != "":
		tokens, err = auth.NewTokenManager(apiURL, cfg.username, cfg.password, httpClient)
		if err != nil {
			return nil, err
		}
		source = tokens
	default:
		return nil, fmt.Errorf("%w: configure WithToken or WithCredentials", errors.ErrTokenRequired)
	}

	api, err := transport.New(apiURL, source, httpClient)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{api: api, tokens: tokens, logger: logger}, nil
}

// BaseURL returns the resolved API root the client requests against.
func (c *Client) BaseURL() string { return c.api.BaseURL() }

// InvalidateToken drops the cached session token so the next request
// signs in again. No-op when a static token is configured.
func (c *Client) InvalidateToken() {
	if c.tokens != nil {
		c.tokens.Invalidate()
	}
}

// context injects the client logger so downstream composers and the
// transport share it.
func (c *Client) context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, c.logger)
}
