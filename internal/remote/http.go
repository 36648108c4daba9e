package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HTTPAdapter implements Adapter over the order service's JSON HTTP API.
// The transport is otelhttp-instrumented; an Authorization bearer token is
// attached when a token source is configured.
type HTTPAdapter struct {
	base   *url.URL
	client *http.Client

	// TokenSource returns the current session token, or empty for an
	// anonymous session. Consulted per request so re-authentication does not
	// require a new adapter.
	TokenSource func() string
}

// NewHTTPAdapter creates an adapter for the service rooted at baseURL.
func NewHTTPAdapter(baseURL string, timeout time.Duration) (*HTTPAdapter, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	return &HTTPAdapter{
		base: base,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Load implements Adapter.
func (a *HTTPAdapter) Load(ctx context.Context, endpoint, id string, params Params) ([]byte, error) {
	u := a.resolve(endpoint, id)
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return a.do(ctx, http.MethodGet, u, nil)
}

// Create implements Adapter.
func (a *HTTPAdapter) Create(ctx context.Context, endpoint, id string, body any) ([]byte, error) {
	return a.do(ctx, http.MethodPost, a.resolve(endpoint, id), body)
}

// Update implements Adapter.
func (a *HTTPAdapter) Update(ctx context.Context, endpoint, id string, body any) ([]byte, error) {
	return a.do(ctx, http.MethodPut, a.resolve(endpoint, id), body)
}

// Remove implements Adapter.
func (a *HTTPAdapter) Remove(ctx context.Context, endpoint, id string, body any) ([]byte, error) {
	return a.do(ctx, http.MethodDelete, a.resolve(endpoint, id), body)
}

func (a *HTTPAdapter) resolve(endpoint, id string) *url.URL {
	path := strings.TrimSuffix(a.base.Path, "/") + "/" + strings.Trim(endpoint, "/")
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	u := *a.base
	u.Path = path
	return &u
}

func (a *HTTPAdapter) do(ctx context.Context, method string, u *url.URL, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.TokenSource != nil {
		if token := a.TokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, u.Path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}
	zctx.From(ctx).Debug("Remote call failed",
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
	)
	return nil, decodeError(resp.StatusCode, payload)
}

// errorEnvelope is the service's error body shape.
type errorEnvelope struct {
	ErrorCode string        `json:"errorCode"`
	Message   string        `json:"message"`
	Errors    []ErrorDetail `json:"errors,omitempty"`
}

// decodeError maps a non-2xx response onto a ServerError. A 401 is always a
// session expiry regardless of body; a body without an error code degrades
// to a code-less ServerError so the engine falls back to a full reload.
func decodeError(status int, payload []byte) error {
	var env errorEnvelope
	_ = json.Unmarshal(payload, &env)

	code := env.ErrorCode
	if status == http.StatusUnauthorized {
		code = CodeSessionExpired
	}
	return &ServerError{
		Code:    code,
		Message: env.Message,
		Status:  status,
		Details: env.Errors,
	}
}
