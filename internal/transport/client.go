// Package transport is the HTTP request executor for the backend API. It
// applies bearer authentication from an auth source, shapes errors into
// the SDK taxonomy, and decodes JSON responses. The core composers never
// touch HTTP; everything network-shaped funnels through here.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tablab/semtab/internal/auth"
	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/logging"
)

// DefaultHTTPTimeout bounds each request; there is no retry layer, so
// this is the caller's only knob.
const DefaultHTTPTimeout = 120 * time.Second

// Client performs authenticated requests against the backend API.
type Client struct {
	http    *http.Client
	baseURL string
	source  auth.Source
}

// New creates a transport client for the API rooted at baseURL. The
// token source may be nil for endpoints that accept anonymous access.
func New(baseURL string, source auth.Source, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, &errors.ValidationError{Field: "base_url", Message: "base URL is required"}
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, &errors.ValidationError{Field: "base_url", Value: baseURL, Message: err.Error()}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{http: httpClient, baseURL: baseURL, source: source}, nil
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Endpoint joins path segments onto the API root.
func (c *Client) Endpoint(segments ...string) (string, error) {
	joined, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return "", &errors.ValidationError{Field: "endpoint", Value: segments, Message: err.Error()}
	}
	return joined, nil
}

// Do performs an HTTP request with authentication and common headers
// applied.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.source != nil {
		token, err := c.source.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	logging.FromContext(ctx).Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Backend request")

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if ctx.Err() == context.DeadlineExceeded || (stderrors.As(err, &netErr) && netErr.Timeout()) {
			return nil, errors.ErrTimeout
		}
		return nil, &errors.APIError{
			Service:  "backend",
			Endpoint: req.URL.String(),
			Message:  err.Error(),
			Err:      err,
		}
	}
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response body into
// target.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, target any) error {
	u, err := c.Endpoint(endpoint)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, endpoint, target)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into target. target may be nil when the response body does
// not matter.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body, target any) error {
	u, err := c.Endpoint(endpoint)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, endpoint, target)
}

// PutJSON performs a PUT request with a JSON body.
func (c *Client) PutJSON(ctx context.Context, endpoint string, body, target any) error {
	u, err := c.Endpoint(endpoint)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, endpoint, target)
}

// Delete performs a DELETE request. A 2xx response is success; the body
// is discarded.
func (c *Client) Delete(ctx context.Context, endpoint string) error {
	u, err := c.Endpoint(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, endpoint, nil)
}

// GetRaw performs a GET request and returns the raw response body, for
// export endpoints that stream CSV or JSON files.
func (c *Client) GetRaw(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u, err := c.Endpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewAPIError("backend", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// Upload performs a multipart POST, streaming one file field plus
// string fields, and decodes the JSON response into target.
func (c *Client) Upload(ctx context.Context, endpoint, fieldName, fileName string, file io.Reader, fields map[string]string, target any) error {
	u, err := c.Endpoint(endpoint)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		return errors.WrapIO("create", fileName, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return errors.WrapIO("read", fileName, err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return errors.WrapIO("write", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.WrapIO("write", fileName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, endpoint, target)
}

// DecodeResponse drains and closes the response body, mapping non-2xx
// statuses and malformed JSON into the SDK error taxonomy. target may be
// nil to discard the body.
func DecodeResponse(resp *http.Response, endpoint string, target any) error {
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errors.APIError{
			Service:    "backend",
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    string(body),
		}
	}
	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
