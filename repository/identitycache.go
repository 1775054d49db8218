package repository

import (
	"context"

	"github.com/signalrelay/authgate/pkg/identity"
)

// IdentityCache remembers which account a bearer token resolved to, bounded
// by a TTL well below token lifetime. Purely an optimization: a miss or a
// cache outage falls through to the identity provider.
type IdentityCache interface {
	Get(ctx context.Context, tokenDigest string) (*identity.User, error)
	Set(ctx context.Context, tokenDigest string, user *identity.User) error
}
