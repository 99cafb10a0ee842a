// Package rest is a gateway implementation speaking HTTP to a dev gateway
// server. It keeps the current session client-side and attaches its bearer
// token to every request.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mathmaster/mathmaster-go/internal/devgateway"
	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

// Config holds connection settings for the REST gateway.
type Config struct {
	// BaseURL is the dev gateway's base URL (e.g. http://localhost:8090)
	BaseURL string

	// Timeout applies to row-store and auth requests, not feed streams.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for the REST gateway.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8090",
		Timeout: 30 * time.Second,
	}
}

// Gateway is an HTTP-backed gateway client.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu            sync.Mutex
	session       *gateway.Session
	authCallbacks map[int]gateway.AuthCallback
	nextAuthID    int
}

// New creates a REST gateway client.
func New(cfg Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:        logger.With(slog.String("component", "gateway-rest")),
		authCallbacks: make(map[int]gateway.AuthCallback),
	}
}

// Ensure Gateway implements the interface
var _ gateway.Gateway = (*Gateway)(nil)

// do performs an HTTP request against the dev gateway, decoding a JSON
// response into result and mapping error payloads back to model sentinels.
func (g *Gateway) do(ctx context.Context, method, path string, body, result any) error {
	url := g.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := g.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return mapResponseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (g *Gateway) get(ctx context.Context, path string, result any) error {
	return g.do(ctx, http.MethodGet, path, nil, result)
}

func (g *Gateway) post(ctx context.Context, path string, body, result any) error {
	return g.do(ctx, http.MethodPost, path, body, result)
}

func (g *Gateway) patch(ctx context.Context, path string, body, result any) error {
	return g.do(ctx, http.MethodPatch, path, body, result)
}

func (g *Gateway) token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return ""
	}
	return g.session.AccessToken
}

// mapResponseError turns an error payload back into the sentinel the server
// mapped it from, so errors.Is checks work the same against any gateway.
func mapResponseError(status int, body []byte) error {
	var errResp devgateway.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Code == "" {
		return fmt.Errorf("HTTP %d: %s", status, string(body))
	}

	switch errResp.Error.Code {
	case devgateway.CodeWeakPassword:
		return model.ErrWeakPassword
	case devgateway.CodeEmailTaken:
		return model.ErrEmailTaken
	case devgateway.CodeInvalidCredentials:
		return model.ErrInvalidCredentials
	case devgateway.CodeSessionExpired:
		return model.ErrSessionExpired
	case devgateway.CodeUnauthorized:
		return model.ErrNotAuthenticated
	case devgateway.CodeProfileNotFound:
		return model.ErrProfileNotFound
	case devgateway.CodeProfileExists:
		return model.ErrProfileExists
	case devgateway.CodeBadgeAlreadyAwarded:
		return model.ErrBadgeAlreadyAwarded
	case devgateway.CodeInvalidProgress:
		return model.ErrInvalidProgress
	case devgateway.CodeInvalidActivityType:
		return model.ErrInvalidActivityType
	default:
		return fmt.Errorf("%s (%s)", errResp.Error.Message, errResp.Error.Code)
	}
}
