package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/repository"
	"github.com/signalrelay/authgate/usecase"
)

type UseCase struct {
	store   repository.ProfileStore
	journal usecase.WriteJournal
	logger  *zap.Logger
}

func New(store repository.ProfileStore, journal usecase.WriteJournal, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		store:   store,
		journal: journal,
		logger:  logger,
	}
}

// GetOrCreate returns the stored profile for the authenticated user, lazily
// persisting a default record on first read. Repeating the call returns the
// same record: the defaults closure only runs when nothing exists yet.
func (uc *UseCase) GetOrCreate(ctx context.Context, userID, email string) (*domain.Profile, error) {
	profile, created, err := uc.store.GetOrCreate(ctx, userID, func() *domain.Profile {
		return domain.DefaultProfile(userID, email)
	})
	if err != nil {
		return nil, err
	}
	if created {
		uc.logger.Info("profile lazily created",
			zap.String("user_id", userID),
			zap.String("role", string(profile.Role)))
	}
	return profile, nil
}

// Update merges the patch over the stored record and persists it. userID and
// email are the authoritative values from the validated token: whatever the
// payload claimed, the persisted record keeps them.
func (uc *UseCase) Update(ctx context.Context, userID, email string, patch domain.Patch) (*domain.Profile, error) {
	if patch.Plan != nil && !domain.ValidPlan(*patch.Plan) {
		return nil, domain.ErrInvalidPlan
	}
	if patch.Role != nil && *patch.Role != domain.RoleAdmin && *patch.Role != domain.RoleUser {
		return nil, domain.ErrInvalidPayload
	}

	profile, err := uc.GetOrCreate(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	profile.Apply(patch)
	profile.ID = userID
	profile.Email = email

	if err := uc.store.Put(ctx, profile); err != nil {
		if uc.journal != nil {
			if jErr := uc.journal.JournalProfile(ctx, profile); jErr != nil {
				uc.logger.Error("failed to journal profile update", zap.Error(jErr))
				return nil, err
			}
			uc.logger.Warn("profile update journaled due to store error", zap.Error(err))
			return profile, nil
		}
		return nil, err
	}
	return profile, nil
}
