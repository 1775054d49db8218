package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/httpx"
)

// APIClient attaches the current bearer token to every authgate request.
// It holds the token in a mutable field and nothing more: no retry, no
// backoff.
type APIClient struct {
	base string
	http *httpx.Client

	mu    sync.RWMutex
	token string
}

func NewAPIClient(base string, timeout time.Duration) *APIClient {
	return &APIClient{
		base: strings.TrimRight(base, "/"),
		http: httpx.NewClient(timeout, nil),
	}
}

// SetToken replaces the active bearer token. An empty string clears it.
func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the active bearer token, empty when unauthenticated.
func (c *APIClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// GetProfile fetches the caller's profile, which the server lazily creates
// on first read.
func (c *APIClient) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.http.DoJSON(ctx, http.MethodGet, c.base+"/user/profile", c.Token(), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile merges the patch server-side and returns the stored result.
func (c *APIClient) UpdateProfile(ctx context.Context, patch domain.Patch) (*domain.Profile, error) {
	var res struct {
		Success bool            `json:"success"`
		Profile *domain.Profile `json:"profile"`
	}
	if err := c.http.DoJSON(ctx, http.MethodPut, c.base+"/user/profile", c.Token(), patch, &res); err != nil {
		return nil, err
	}
	return res.Profile, nil
}

// Signup hits the unauthenticated signup endpoint. Used as the
// identity-provider-backed fallback when the primary auth service is
// unreachable.
func (c *APIClient) Signup(ctx context.Context, email, password, name string, plan domain.Plan) (string, error) {
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
		"name":     name,
	}
	if plan != "" {
		payload["plan"] = plan
	}
	var res struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.base+"/auth/signup", "", payload, &res); err != nil {
		return "", err
	}
	return res.UserID, nil
}
