package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/repository"
)

type profileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore instantiates a Postgres-backed profile store.
func NewProfileStore(pool *pgxpool.Pool) repository.ProfileStore {
	return &profileStore{pool: pool}
}

const selectProfile = `
	SELECT id, email, name, role, plan, trial_ends_at, trades_count, created_at, updated_at
	FROM profiles
	WHERE id = $1
`

func (s *profileStore) Get(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.pool.QueryRow(ctx, selectProfile, id)
	return scanProfile(row)
}

func (s *profileStore) Put(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || profile.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO profiles (id, email, name, role, plan, trial_ends_at, trades_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		role = EXCLUDED.role,
		plan = EXCLUDED.plan,
		trial_ends_at = EXCLUDED.trial_ends_at,
		trades_count = EXCLUDED.trades_count,
		updated_at = NOW()
	RETURNING created_at, updated_at;
	`

	return s.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Email,
		profile.Name,
		string(profile.Role),
		string(profile.Plan),
		profile.TrialEndsAt,
		profile.TradesCount,
		nullTime(profile.CreatedAt),
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

// GetOrCreate relies on a conditional insert: ON CONFLICT DO NOTHING makes
// the lazy-create race-free, and the follow-up read returns whichever record
// won.
func (s *profileStore) GetOrCreate(ctx context.Context, id string, fresh func() *domain.Profile) (*domain.Profile, bool, error) {
	if id == "" {
		return nil, false, domain.ErrInvalidPayload
	}

	existing, err := s.Get(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, false, err
	}

	profile := fresh()
	if profile == nil || profile.ID != id {
		return nil, false, domain.ErrInvalidPayload
	}

	const insert = `
	INSERT INTO profiles (id, email, name, role, plan, trial_ends_at, trades_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (id) DO NOTHING;
	`
	tag, err := s.pool.Exec(ctx, insert,
		profile.ID,
		profile.Email,
		profile.Name,
		string(profile.Role),
		string(profile.Plan),
		profile.TrialEndsAt,
		profile.TradesCount,
	)
	if err != nil {
		return nil, false, err
	}

	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return stored, tag.RowsAffected() > 0, nil
}

func (s *profileStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var profile domain.Profile
	var role, plan string
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.Name,
		&role,
		&plan,
		&profile.TrialEndsAt,
		&profile.TradesCount,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	profile.Role = domain.Role(role)
	profile.Plan = domain.Plan(plan)
	return &profile, nil
}
