package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	boltdb "go.etcd.io/bbolt"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/repository"
)

const bucketName = "profiles"

type profileStore struct {
	db     *boltdb.DB
	bucket []byte
}

// Open initializes the BoltDB-backed profile store and ensures the bucket
// exists. This is the default key-value store keyed by user id.
func Open(path string) (repository.ProfileStore, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	db, err := boltdb.Open(path, 0o600, &boltdb.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, err
	}
	if err := db.Update(func(tx *boltdb.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, nil, err
	}
	store := &profileStore{db: db, bucket: []byte(bucketName)}
	return store, db.Close, nil
}

func (s *profileStore) Get(ctx context.Context, id string) (*domain.Profile, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}
	var profile *domain.Profile
	err := s.db.View(func(tx *boltdb.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(id))
		if raw == nil {
			return domain.ErrProfileNotFound
		}
		profile = new(domain.Profile)
		return json.Unmarshal(raw, profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileStore) Put(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || profile.ID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *boltdb.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(profile.ID), payload)
	})
}

// GetOrCreate reads and (when absent) writes inside a single update
// transaction, so two concurrent first-time reads can never persist two
// distinct default records.
func (s *profileStore) GetOrCreate(ctx context.Context, id string, fresh func() *domain.Profile) (*domain.Profile, bool, error) {
	if id == "" {
		return nil, false, domain.ErrInvalidPayload
	}
	var profile *domain.Profile
	var created bool
	err := s.db.Update(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if raw := bucket.Get([]byte(id)); raw != nil {
			profile = new(domain.Profile)
			return json.Unmarshal(raw, profile)
		}
		profile = fresh()
		if profile == nil || profile.ID != id {
			return domain.ErrInvalidPayload
		}
		payload, err := json.Marshal(profile)
		if err != nil {
			return err
		}
		created = true
		return bucket.Put([]byte(id), payload)
	})
	if err != nil {
		return nil, false, err
	}
	return profile, created, nil
}

func (s *profileStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *boltdb.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return boltdb.ErrBucketNotFound
		}
		return nil
	})
}
