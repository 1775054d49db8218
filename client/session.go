// Package client is the embeddable session SDK for the trading-signal relay
// platform. It owns the in-memory "who is logged in, which bearer token"
// pair and the two-tier login/signup flow: the self-hosted primary auth
// service first, the hosted identity provider only when the primary is
// unreachable at the transport level.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/httpx"
	"github.com/signalrelay/authgate/pkg/identity"
)

// Config wires a Session to its collaborators.
type Config struct {
	// AuthgateURL is the base URL of the profile/signup service.
	AuthgateURL string
	// PrimaryAuthURL overrides primary auth base resolution entirely.
	PrimaryAuthURL string
	// Origin is the public URL the app is served from; combined with
	// ProductDomain it decides whether the primary auth service is
	// same-origin.
	Origin        string
	ProductDomain string
	// DevAuthURL is used when the origin is not on the production domain.
	DevAuthURL string
	// IdentityURL and IdentityKey configure the fallback identity provider.
	IdentityURL string
	IdentityKey string
	// StoredToken, when present, is a token from a previous run that
	// Bootstrap tries to resume.
	StoredToken string
	Timeout     time.Duration
}

// Session is the single source of truth for the authenticated user and
// token. Mutating operations are serialized: a second Login issued while
// one is in flight waits rather than racing it.
type Session struct {
	cfg    Config
	api    *APIClient
	idp    *identity.Client
	http   *httpx.Client
	logger *zap.Logger

	opMu sync.Mutex

	mu      sync.RWMutex
	user    *domain.Profile
	token   string
	loading bool
}

func New(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:    cfg,
		api:    NewAPIClient(cfg.AuthgateURL, cfg.Timeout),
		idp:    identity.NewClient(cfg.IdentityURL, cfg.IdentityKey, cfg.Timeout, logger),
		http:   httpx.NewClient(cfg.Timeout, nil),
		logger: logger,
	}
}

// User returns the cached profile, nil when unauthenticated.
func (s *Session) User() *domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the active access token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Loading reports whether the initial bootstrap round trip is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// API exposes the token-carrying client for further authgate calls.
func (s *Session) API() *APIClient {
	return s.api
}

// SetUser patches the cached profile without a round trip. Used by
// onboarding flows that already know the server-side outcome.
func (s *Session) SetUser(profile *domain.Profile) {
	s.mu.Lock()
	s.user = profile
	s.mu.Unlock()
}

// Bootstrap resumes an existing identity-provider session, if any. It never
// returns an error: failures leave the session unauthenticated and are only
// logged. The loading flag is cleared whatever happens.
func (s *Session) Bootstrap(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	token := s.cfg.StoredToken
	if token == "" {
		return
	}
	if _, err := s.idp.UserFromToken(ctx, token); err != nil {
		s.logger.Info("no resumable session", zap.Error(err))
		return
	}
	if _, err := s.adoptToken(ctx, token); err != nil {
		s.logger.Warn("session resume failed", zap.Error(err))
	}
}

// Login authenticates against the primary auth service, falling back to the
// identity provider's password grant only when the primary is unreachable.
// Rejected credentials are terminal whichever provider produced them.
func (s *Session) Login(ctx context.Context, email, password string) (*domain.Profile, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.login(ctx, email, password)
}

func (s *Session) login(ctx context.Context, email, password string) (*domain.Profile, error) {
	base := resolvePrimaryAuthURL(s.cfg)
	payload := map[string]string{"email": email, "password": password}

	var res primaryAuthResult
	err := s.http.DoJSON(ctx, http.MethodPost, base+"/auth/login", "", payload, &res)
	if err == nil {
		profile, perr := res.profile()
		if perr != nil {
			return nil, perr
		}
		s.adopt(profile, res.AccessToken)
		return profile, nil
	}

	var transportErr *httpx.TransportError
	if !errors.As(err, &transportErr) {
		// The primary answered: bad credentials or a validation problem.
		// Terminal, surfaced as the body's own message.
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) {
			return nil, errors.New(apiErr.Message())
		}
		return nil, err
	}

	s.logger.Warn("primary auth unreachable, falling back to identity provider", zap.Error(err))

	grant, err := s.idp.PasswordGrant(ctx, email, password)
	if err != nil {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) {
			return nil, errors.New(apiErr.Message())
		}
		return nil, err
	}
	return s.adoptToken(ctx, grant.AccessToken)
}

// Signup registers against the primary auth service first. Validation
// errors are terminal; only a transport failure diverts to the
// identity-provider-backed signup endpoint, which on success chains into a
// regular Login with the same credentials.
func (s *Session) Signup(ctx context.Context, email, password, name string, plan domain.Plan) (*domain.Profile, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	base := resolvePrimaryAuthURL(s.cfg)
	payload := map[string]string{"email": email, "password": password, "name": name}

	var res primaryAuthResult
	err := s.http.DoJSON(ctx, http.MethodPost, base+"/auth/signup", "", payload, &res)
	if err == nil {
		profile, perr := res.profile()
		if perr != nil {
			return nil, perr
		}
		s.adopt(profile, res.AccessToken)
		return profile, nil
	}

	var transportErr *httpx.TransportError
	if !errors.As(err, &transportErr) {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) {
			return nil, errors.New(apiErr.Message())
		}
		return nil, err
	}

	s.logger.Warn("primary auth unreachable, signing up via identity provider", zap.Error(err))

	if _, err := s.api.Signup(ctx, email, password, name, plan); err != nil {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) {
			return nil, errors.New(apiErr.Message())
		}
		return nil, err
	}
	return s.login(ctx, email, password)
}

// Logout clears local state and best-effort invalidates the provider-side
// session. It never fails visibly.
func (s *Session) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	token := s.token
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	s.api.SetToken("")
	s.idp.Logout(ctx, token)
}

// UpdateProfile pushes a patch through the API client and refreshes the
// cached user on success.
func (s *Session) UpdateProfile(ctx context.Context, patch domain.Patch) (*domain.Profile, error) {
	if s.api.Token() == "" {
		return nil, errors.New("not authenticated")
	}
	profile, err := s.api.UpdateProfile(ctx, patch)
	if err != nil {
		return nil, err
	}
	s.SetUser(profile)
	return profile, nil
}

// adopt installs a primary-auth login result.
func (s *Session) adopt(profile *domain.Profile, token string) {
	s.api.SetToken(token)
	s.mu.Lock()
	s.user = profile
	s.token = token
	s.mu.Unlock()
}

// adoptToken installs an identity-provider token by fetching the profile
// from authgate with it. Nothing is kept when the fetch fails.
func (s *Session) adoptToken(ctx context.Context, token string) (*domain.Profile, error) {
	s.api.SetToken(token)
	profile, err := s.api.GetProfile(ctx)
	if err != nil {
		s.api.SetToken("")
		return nil, err
	}
	s.mu.Lock()
	s.user = profile
	s.token = token
	s.mu.Unlock()
	return profile, nil
}

// primaryAuthResult is the wire shape both primary auth endpoints answer
// with.
type primaryAuthResult struct {
	AccessToken string      `json:"access_token"`
	UserID      string      `json:"user_id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
	Plan        domain.Plan `json:"plan"`
}

func (r primaryAuthResult) profile() (*domain.Profile, error) {
	if r.AccessToken == "" || r.UserID == "" {
		return nil, fmt.Errorf("malformed primary auth response")
	}
	return &domain.Profile{
		ID:    r.UserID,
		Email: r.Email,
		Name:  r.Name,
		Role:  r.Role,
		Plan:  r.Plan,
	}, nil
}
