// Package identity talks to the hosted identity provider that owns
// credentials and token issuance. The provider is the fallback login path for
// clients and the source of truth for bearer-token validation on the server.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/httpx"
)

// User is the provider's view of an account: the opaque id it assigned plus
// the email the account was created with.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Grant is the result of a successful password-grant login.
type Grant struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type Client struct {
	baseURL string
	http    *httpx.Client
	logger  *zap.Logger
}

// NewClient builds a provider client. serviceKey, when set, is sent as the
// provider's apikey header on every call (required for admin endpoints).
func NewClient(baseURL, serviceKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	var headers map[string]string
	if serviceKey != "" {
		headers = map[string]string{"apikey": serviceKey}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpx.NewClient(timeout, headers),
		logger:  logger,
	}
}

// CreateUser provisions an account with the email pre-confirmed, so no
// verification mail is involved. Duplicate emails surface as a conflict
// carrying the provider's own message.
func (c *Client) CreateUser(ctx context.Context, email, password string) (*User, error) {
	payload := map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	var user User
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/admin/users", "", payload, &user); err != nil {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) {
			return nil, domain.WrapError(domain.ErrCodeConflict, apiErr.Message(), err)
		}
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "identity provider unreachable", err)
	}
	return &user, nil
}

// UserFromToken resolves a bearer token to the account it belongs to.
func (c *Client) UserFromToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	var user User
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/user", token, nil, &user); err != nil {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
				return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
			}
			return nil, domain.WrapError(domain.ErrCodeInternal, "identity provider error", err)
		}
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "identity provider unreachable", err)
	}
	if user.ID == "" {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", nil)
	}
	return &user, nil
}

// PasswordGrant exchanges credentials for an access token. Errors keep their
// transport/API classification so the session fallback logic can tell a
// rejected password from an unreachable provider.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*Grant, error) {
	payload := map[string]string{"email": email, "password": password}
	var grant Grant
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/token?grant_type=password", "", payload, &grant); err != nil {
		return nil, err
	}
	if grant.AccessToken == "" {
		return nil, &httpx.APIError{Status: http.StatusOK, Body: []byte(`{"error":"empty grant"}`)}
	}
	return &grant, nil
}

// Logout invalidates the provider-side session. Best effort: failures are
// logged, never returned.
func (c *Client) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/logout", token, nil, nil); err != nil {
		c.logger.Warn("identity provider logout failed", zap.Error(err))
	}
}
