package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/identity"
	"github.com/signalrelay/authgate/repository"
)

type identityCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewIdentityCache creates a Redis-backed token-to-identity cache. Entries
// are keyed by token digest, never by the raw token.
func NewIdentityCache(client *redislib.Client, ttl time.Duration) repository.IdentityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &identityCache{
		client: client,
		prefix: "token:",
		ttl:    ttl,
	}
}

func (c *identityCache) Get(ctx context.Context, tokenDigest string) (*identity.User, error) {
	result, err := c.client.Get(ctx, c.key(tokenDigest)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	var user identity.User
	if err := json.Unmarshal([]byte(result), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *identityCache) Set(ctx context.Context, tokenDigest string, user *identity.User) error {
	if tokenDigest == "" || user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(tokenDigest), payload, c.ttl).Err()
}

func (c *identityCache) key(digest string) string {
	return fmt.Sprintf("%s%s", c.prefix, digest)
}
