package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/identity"
)

type fakeResolver struct {
	user  *identity.User
	err   error
	calls int
}

func (f *fakeResolver) UserFromToken(_ context.Context, token string) (*identity.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeCache struct {
	users map[string]*identity.User
	sets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{users: make(map[string]*identity.User)}
}

func (f *fakeCache) Get(_ context.Context, digest string) (*identity.User, error) {
	u, ok := f.users[digest]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

func (f *fakeCache) Set(_ context.Context, digest string, user *identity.User) error {
	f.sets++
	f.users[digest] = user
	return nil
}

func newRequestCtx(authorization string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	var req fasthttp.Request
	req.SetRequestURI("http://test/user/profile")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	ctx.Init(&req, nil, nil)
	return &ctx
}

func TestBearerAuthMissingToken(t *testing.T) {
	mw := BearerAuth(&fakeResolver{}, nil, Config{}, nil)
	called := false
	ctx := newRequestCtx("")
	mw(func(*fasthttp.RequestCtx) { called = true })(ctx)

	if called {
		t.Fatal("handler ran without a bearer token")
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", got)
	}
}

func TestBearerAuthResolvesIdentity(t *testing.T) {
	resolver := &fakeResolver{user: &identity.User{ID: "u-1", Email: "trader@corp.com"}}
	mw := BearerAuth(resolver, nil, Config{}, nil)

	ctx := newRequestCtx("Bearer tok-1")
	var gotID, gotEmail string
	mw(func(c *fasthttp.RequestCtx) {
		gotID = string(c.Request.Header.Peek(HeaderUserID))
		gotEmail = string(c.Request.Header.Peek(HeaderUserEmail))
	})(ctx)

	if gotID != "u-1" || gotEmail != "trader@corp.com" {
		t.Fatalf("identity headers = (%q, %q), want resolved user", gotID, gotEmail)
	}
}

func TestBearerAuthInvalidToken(t *testing.T) {
	resolver := &fakeResolver{err: domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", nil)}
	mw := BearerAuth(resolver, nil, Config{}, nil)

	ctx := newRequestCtx("Bearer bad")
	called := false
	mw(func(*fasthttp.RequestCtx) { called = true })(ctx)

	if called {
		t.Fatal("handler ran with a rejected token")
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", got)
	}
}

func TestBearerAuthProviderOutage(t *testing.T) {
	resolver := &fakeResolver{err: domain.WrapError(domain.ErrCodeUnavailable, "identity provider unreachable", nil)}
	mw := BearerAuth(resolver, nil, Config{}, nil)

	ctx := newRequestCtx("Bearer tok-1")
	mw(func(*fasthttp.RequestCtx) {})(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 on provider outage", got)
	}
}

func TestBearerAuthCachesResolvedTokens(t *testing.T) {
	resolver := &fakeResolver{user: &identity.User{ID: "u-1", Email: "trader@corp.com"}}
	cache := newFakeCache()
	mw := BearerAuth(resolver, cache, Config{}, nil)
	handler := mw(func(*fasthttp.RequestCtx) {})

	handler(newRequestCtx("Bearer tok-1"))
	handler(newRequestCtx("Bearer tok-1"))

	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1 (second hit served from cache)", resolver.calls)
	}
	if cache.sets != 1 {
		t.Fatalf("cache.Set called %d times, want 1", cache.sets)
	}
}

func TestBearerAuthLocalJWT(t *testing.T) {
	const secret = "test-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u-1",
		"email": "trader@corp.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	resolver := &fakeResolver{}
	mw := BearerAuth(resolver, nil, Config{JWTSecret: secret}, nil)

	ctx := newRequestCtx("Bearer " + signed)
	var gotID string
	mw(func(c *fasthttp.RequestCtx) {
		gotID = string(c.Request.Header.Peek(HeaderUserID))
	})(ctx)

	if gotID != "u-1" {
		t.Fatalf("user id = %q, want claim subject", gotID)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver called %d times, local verification must not hit the provider", resolver.calls)
	}
}

func TestBearerAuthLocalJWTWrongSecret(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"})
	signed, err := token.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	mw := BearerAuth(&fakeResolver{}, nil, Config{JWTSecret: "test-secret"}, nil)
	ctx := newRequestCtx("Bearer " + signed)
	called := false
	mw(func(*fasthttp.RequestCtx) { called = true })(ctx)

	if called {
		t.Fatal("handler ran with a token signed by the wrong secret")
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", got)
	}
}
