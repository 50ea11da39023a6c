package semtab

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tablab/semtab/internal/transport"
	"github.com/tablab/semtab/pkg/errors"
)

// Option is a function that configures a Client instance.
type Option func(*config) error

type config struct {
	baseURL     string
	username    string
	password    string
	token       string
	httpClient  *http.Client
	httpTimeout time.Duration
	logger      *zerolog.Logger
}

func defaultConfig() *config {
	return &config{httpTimeout: transport.DefaultHTTPTimeout}
}

// WithBaseURL sets the root URL of the annotation backend, for example
// "http://localhost:3003". The "api" prefix is appended internally.
func WithBaseURL(rawURL string) Option {
	return func(c *config) error {
		if strings.TrimSpace(rawURL) == "" {
			return errors.NewValidationError("baseURL", rawURL, "base URL must not be empty")
		}
		c.baseURL = rawURL
		return nil
	}
}

// WithCredentials configures username/password sign-in. The client signs
// in lazily on the first request and refreshes the token when it expires.
func WithCredentials(username, password string) Option {
	return func(c *config) error {
		if username == "" {
			return errors.NewValidationError("username", username, "username must not be empty")
		}
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken configures a pre-issued bearer token, bypassing sign-in.
// Takes precedence over WithCredentials when both are set.
func WithToken(token string) Option {
	return func(c *config) error {
		if token == "" {
			return errors.NewValidationError("token", token, "token must not be empty")
		}
		c.token = token
		return nil
	}
}

// WithHTTPClient supplies a custom HTTP client, replacing the default
// client and its timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) error {
		if httpClient == nil {
			return errors.NewValidationError("httpClient", nil, "http client must not be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithHTTPTimeout sets the timeout of the default HTTP client. Ignored
// when WithHTTPClient is used.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return errors.NewValidationError("timeout", timeout, "timeout must be positive")
		}
		c.httpTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger used for request tracing and composer
// warnings. Defaults to the package logging default.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}
