package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/identity"
	"github.com/signalrelay/authgate/repository"
)

// Headers carrying the validated caller identity to downstream handlers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// IdentityResolver is the slice of the identity provider client used for
// bearer validation.
type IdentityResolver interface {
	UserFromToken(ctx context.Context, token string) (*identity.User, error)
}

// Config tunes the bearer-auth middleware.
type Config struct {
	// JWTSecret enables local HS256 verification: tokens are checked
	// in-process instead of a provider round trip. Empty disables it.
	JWTSecret string
	// Timeout bounds each provider validation call.
	Timeout time.Duration
}

// BearerAuth validates the Authorization bearer on every request. Successful
// validations resolved through the provider are cached by token digest; the
// cache is optional and a miss or outage falls through to the provider.
func BearerAuth(resolver IdentityResolver, cache repository.IdentityCache, cfg Config, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			token := extractToken(ctx)
			if token == "" {
				unauthorized(ctx, "missing bearer token")
				return
			}

			if cfg.JWTSecret != "" {
				user, err := verifyLocal(token, cfg.JWTSecret)
				if err != nil {
					logger.Warn("local token verification failed", zap.Error(err))
					unauthorized(ctx, "invalid token")
					return
				}
				setIdentity(ctx, user)
				next(ctx)
				return
			}

			stdCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
			defer cancel()

			digest := tokenDigest(token)
			if cache != nil {
				if user, err := cache.Get(stdCtx, digest); err == nil {
					setIdentity(ctx, user)
					next(ctx)
					return
				}
			}

			user, err := resolver.UserFromToken(stdCtx, token)
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
					unauthorized(ctx, "invalid token")
					return
				}
				logger.Error("token validation failed", zap.Error(err))
				ctx.Response.Header.SetContentType("application/json")
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				body, _ := json.Marshal(map[string]string{"error": "token validation failed"})
				ctx.SetBody(body)
				return
			}

			if cache != nil {
				if err := cache.Set(stdCtx, digest, user); err != nil {
					logger.Warn("identity cache write failed", zap.Error(err))
				}
			}

			setIdentity(ctx, user)
			next(ctx)
		}
	}
}

func verifyLocal(token, secret string) (*identity.User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return nil, domain.ErrUnauthorized
	}
	return &identity.User{ID: sub, Email: email}, nil
}

func setIdentity(ctx *fasthttp.RequestCtx, user *identity.User) {
	ctx.Request.Header.Set(HeaderUserID, user.ID)
	ctx.Request.Header.Set(HeaderUserEmail, user.Email)
}

func unauthorized(ctx *fasthttp.RequestCtx, message string) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	body, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetBody(body)
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
