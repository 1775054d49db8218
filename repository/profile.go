package repository

import (
	"context"

	"github.com/signalrelay/authgate/domain"
)

// ProfileStore is the durable map from identity-provider user id to profile
// record. GetOrCreate is the explicit upsert-on-read primitive: the fresh
// callback is only invoked when no record exists, and implementations must
// guarantee that concurrent first-time reads cannot persist two records.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Put(ctx context.Context, profile *domain.Profile) error
	GetOrCreate(ctx context.Context, id string, fresh func() *domain.Profile) (*domain.Profile, bool, error)
	Ping(ctx context.Context) error
}
